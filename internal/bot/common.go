package bot

import "strings"

// guard is one stage of the access pipeline evaluated before a handler
// runs: allow decides, deny (optional) reacts to the rejection.
type guard struct {
	name  string
	allow func(userID int64) bool
	deny  func(userID, chatID int64)
}

type guardChain []guard

// admit runs the chain in order; the first failing guard stops it.
func (c guardChain) admit(userID, chatID int64) bool {
	for _, g := range c {
		if !g.allow(userID) {
			if g.deny != nil {
				g.deny(userID, chatID)
			}
			return false
		}
	}
	return true
}

// allowlisted builds a predicate admitting the given ids. An empty list
// admits everyone.
func allowlisted(ids []int64) func(int64) bool {
	if len(ids) == 0 {
		return func(int64) bool { return true }
	}
	return memberOf(ids)
}

// memberOf is strict membership: an empty list admits no one.
func memberOf(ids []int64) func(int64) bool {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(userID int64) bool {
		_, ok := set[userID]
		return ok
	}
}

// familyIcons renders a model's family tags as icons. Any unknown family
// collapses the whole tag to a single sparkle.
func familyIcons(families []string) string {
	icons := map[string]string{"llama": "🦙", "clip": "📷"}

	var b strings.Builder
	for _, family := range families {
		icon, ok := icons[family]
		if !ok {
			return "✨"
		}
		b.WriteString(icon)
	}

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
