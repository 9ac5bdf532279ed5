package smtp

import (
	"io"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSendEMail(t *testing.T) {
	t.Run("not configured is a no-op", func(t *testing.T) {
		require.NoError(t, NewClient("", "", "", "", false).SendEMail("a@b.c", "d@e.f", "text", "subject"))
	})

	t.Run("message is sent through the configured server", func(t *testing.T) {
		var gotAddr, gotBody string
		var gotTo []string
		client := &impl{user: "robot", password: "secret", host: "smtp.local", port: "25"}
		client.send = func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
			body, err := io.ReadAll(r)
			require.NoError(t, err)
			gotAddr, gotTo, gotBody = addr, to, string(body)
			return nil
		}
		require.NoError(t, client.SendEMail("noreply@proposals.local", "cand@mail.local", "Срок истек", "Предложение"))
		require.Equal(t, "smtp.local:25", gotAddr)
		require.Equal(t, []string{"cand@mail.local"}, gotTo)
		require.Contains(t, gotBody, "Subject: Предложение")
		require.Contains(t, gotBody, "Срок истек")
	})

	t.Run("send error is returned", func(t *testing.T) {
		client := &impl{user: "robot", host: "smtp.local", port: "25"}
		client.send = func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
			return errors.New("421 service not available")
		}
		require.Error(t, client.SendEMail("a@b.c", "d@e.f", "text", "subject"))
	})
}
