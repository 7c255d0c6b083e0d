// Package tier содержит единую политику сравнения тарифов.
//
// Тарифы упорядочены явной лестницей (FREE < PREMIUM < LIFETIME), а не
// сравнением строк. Чтобы добавить промежуточный тариф, достаточно вставить
// его в лестницу в Default: места вызова не меняются.
package tier

import "strings"

// Имена тарифов, которые известны политике по умолчанию.
const (
	None     = "none"
	Free     = "FREE"
	Premium  = "PREMIUM"
	Lifetime = "LIFETIME"
)

// Policy решает, удовлетворяет ли тариф пользователя требуемому тарифу ресурса.
type Policy interface {
	// Rank возвращает позицию тарифа в порядке (0 — неизвестный тариф).
	Rank(name string) int
	// Satisfies сообщает, достаточно ли тарифа have для ресурса с тарифом want.
	Satisfies(have, want string) bool
	// PrivilegedOnly сообщает, что тариф нельзя купить обычному пользователю.
	PrivilegedOnly(name string) bool
	// Base возвращает базовый (бесплатный) тариф.
	Base() string
	// Unlimited возвращает тариф, который отображается привилегированным ролям.
	Unlimited() string
}

// Ladder — Policy на основе упорядоченного списка тарифов.
type Ladder struct {
	ranks      map[string]int
	top        int
	base       string
	unlimited  string
	privileged map[string]struct{}
}

// NewLadder строит лестницу из тарифов в порядке возрастания.
// Первый элемент считается базовым, последний — безлимитным.
func NewLadder(order []string, privilegedOnly ...string) *Ladder {
	l := &Ladder{
		ranks:      make(map[string]int, len(order)),
		top:        len(order),
		privileged: make(map[string]struct{}, len(privilegedOnly)),
	}
	for i, name := range order {
		l.ranks[normalize(name)] = i + 1
	}
	if len(order) > 0 {
		l.base = normalize(order[0])
		l.unlimited = normalize(order[len(order)-1])
	}
	for _, name := range privilegedOnly {
		l.privileged[normalize(name)] = struct{}{}
	}
	return l
}

// Default возвращает политику FREE < PREMIUM < LIFETIME, где LIFETIME
// доступен только привилегированным ролям.
func Default() *Ladder {
	return NewLadder([]string{Free, Premium, Lifetime}, Lifetime)
}

// Rank возвращает позицию тарифа; неизвестные тарифы получают 0.
func (l *Ladder) Rank(name string) int {
	return l.ranks[normalize(name)]
}

// Satisfies сравнивает тарифы по рангу. Неизвестный тариф пользователя не
// удовлетворяет ничему, а неизвестный тариф ресурса требует высший ранг.
func (l *Ladder) Satisfies(have, want string) bool {
	if strings.TrimSpace(want) == "" {
		return true
	}
	required := l.Rank(want)
	if required == 0 {
		required = l.top
	}
	got := l.Rank(have)
	return got > 0 && got >= required
}

func (l *Ladder) PrivilegedOnly(name string) bool {
	_, ok := l.privileged[normalize(name)]
	return ok
}

func (l *Ladder) Base() string { return l.base }

func (l *Ladder) Unlimited() string { return l.unlimited }

// Normalize приводит имя тарифа к каноническому виду.
func Normalize(name string) string { return normalize(name) }

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
