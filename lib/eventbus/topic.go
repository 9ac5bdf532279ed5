package eventbus

import "strings"

// MatchTopic сопоставляет routing key с шаблоном в стиле topic exchange:
// "*" ровно одно слово, "#" ноль и более слов.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for skip := 0; skip <= len(key); skip++ {
			if matchWords(pattern[1:], key[skip:]) {
				return true
			}
		}
		return false
	case "*":
		if len(key) == 0 {
			return false
		}
		return matchWords(pattern[1:], key[1:])
	default:
		if len(key) == 0 || pattern[0] != key[0] {
			return false
		}
		return matchWords(pattern[1:], key[1:])
	}
}

func MatchAny(patterns []string, routingKey string) bool {
	for _, pattern := range patterns {
		if MatchTopic(pattern, routingKey) {
			return true
		}
	}
	return false
}
