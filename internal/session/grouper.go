package session

// Grouper splits identifiers into delivery channels for a target rate.
// It is the extension point for a real response model; implementations
// must be deterministic for the same input.
type Grouper interface {
	Group(ids []string, rate int) Groups
}

// RateGrouper assigns rate percent of the identifiers (rounded down) to
// mail, then splits the rest between messaging and ignored, messaging
// taking the odd one. Order within each group follows the upload.
type RateGrouper struct{}

func (RateGrouper) Group(ids []string, rate int) Groups {
	rate = min(max(rate, 0), 100)
	mail := len(ids) * rate / 100
	rest := len(ids) - mail
	messaging := (rest + 1) / 2

	return Groups{
		Mail:      append([]string(nil), ids[:mail]...),
		Messaging: append([]string(nil), ids[mail:mail+messaging]...),
		Ignored:   append([]string(nil), ids[mail+messaging:]...),
	}
}

// statsFor derives Stats from a partition.
func statsFor(total, rate int, g Groups) Stats {
	return Stats{
		TotalUsers:       total,
		ExpectedOpenRate: rate,
		MailGroup:        len(g.Mail),
		WhatsappGroup:    len(g.Messaging),
		IgnoredGroup:     len(g.Ignored),
	}
}
