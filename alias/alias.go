// Package alias generates address aliases from a base mailbox using the
// dot and plus-addressing conventions most providers accept.
package alias

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// DefaultLimit is the number of aliases Generate returns by default.
const DefaultLimit = 50

// Filename is the suggested name for a saved alias list.
const Filename = "email-aliases.txt"

const (
	dotVariants    = 10
	plusVariants   = 15
	suffixVariants = 20
)

var (
	serviceTags = []string{"shopping", "social", "work", "newsletter", "banking", "travel", "gaming", "support"}
	suffixes    = []string{"temp", "test", "backup", "alt", "secondary", "primary", "main", "extra", "special", "custom"}
)

// ErrInvalidAddress is returned when the base address has no user or domain.
var ErrInvalidAddress = errors.New("invalid email address")

type config struct {
	limit   int
	year    int
	seed    uint64
	hasSeed bool
}

// Option configures Generate.
type Option func(*config)

// WithLimit caps the number of aliases. Non-positive values mean no cap.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// WithYear sets the first of the two year tags. Default: the current year.
func WithYear(year int) Option {
	return func(c *config) {
		c.year = year
	}
}

// WithSeed fixes the seed of the numeric suffixes. By default the seed is
// derived from the base address, so the same address always produces the
// same list.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
		c.hasSeed = true
	}
}

// Generate returns aliases of base in a fixed order: numbered dot
// variants, numbered plus variants, service tags, year tags and suffix
// tags with a number appended.
func Generate(base string, opts ...Option) ([]string, error) {
	user, domain, err := split(base)
	if err != nil {
		return nil, err
	}

	cfg := &config{limit: DefaultLimit, year: time.Now().Year()}
	for _, opt := range opts {
		opt(cfg)
	}
	if !cfg.hasSeed {
		h := fnv.New64a()
		h.Write([]byte(user + "@" + domain))
		cfg.seed = h.Sum64()
	}
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed>>1|1))

	out := make([]string, 0, dotVariants+plusVariants+len(serviceTags)+2+suffixVariants)
	at := "@" + domain
	for i := 1; i <= dotVariants; i++ {
		out = append(out, user+"."+strconv.Itoa(i)+at)
	}
	for i := 1; i <= plusVariants; i++ {
		out = append(out, user+"+"+strconv.Itoa(i)+at)
	}
	for _, tag := range serviceTags {
		out = append(out, user+"+"+tag+at)
	}
	out = append(out,
		user+"+"+strconv.Itoa(cfg.year)+at,
		user+"+"+strconv.Itoa(cfg.year+1)+at,
	)
	for i := 0; i < suffixVariants; i++ {
		out = append(out, fmt.Sprintf("%s+%s%d%s", user, suffixes[i%len(suffixes)], rng.IntN(100), at))
	}

	if cfg.limit > 0 && len(out) > cfg.limit {
		out = out[:cfg.limit]
	}
	return out, nil
}

func split(base string) (user, domain string, err error) {
	base = strings.TrimSpace(base)
	user, domain, ok := strings.Cut(base, "@")
	if !ok || user == "" || domain == "" || strings.Contains(domain, "@") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAddress, base)
	}
	return user, domain, nil
}

// Write writes aliases one per line, without a trailing newline.
func Write(w io.Writer, aliases []string) error {
	_, err := io.WriteString(w, strings.Join(aliases, "\n"))
	return err
}
