// Package baseline loads the perpendicular-baseline table and answers
// pairing queries for the interferogram stack.
package baseline

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nameji/troposar/internal/domain"
)

// Record is one row of the baseline table.
type Record struct {
	Master        domain.Date
	Slave         domain.Date
	Perpendicular float64 // metres
}

// Pair identifies one interferogram of the stack.
type Pair struct {
	Master domain.Date
	Slave  domain.Date
}

// Network is the loaded baseline table. Read-only after Load; safe to share
// across workers without locking.
type Network struct {
	master  domain.Date
	records map[string]Record // keyed by PairKey
	order   []Pair
}

// Load reads a whitespace-delimited 3-column baseline table (master date,
// slave date, perpendicular baseline in metres). Lines starting with # and
// blank lines are ignored. The table's master column must be single-valued
// and match the configured master date.
func Load(path string, master domain.Date) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "baselines", Detail: err.Error()}
	}
	defer f.Close()

	n := &Network{master: master, records: make(map[string]Record)}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, domain.Configf("%s:%d: want 3 columns, got %d", path, line, len(fields))
		}
		m, err := domain.ParseDate(fields[0])
		if err != nil {
			return nil, domain.Configf("%s:%d: %v", path, line, err)
		}
		s, err := domain.ParseDate(fields[1])
		if err != nil {
			return nil, domain.Configf("%s:%d: %v", path, line, err)
		}
		b, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, domain.Configf("%s:%d: baseline %q: %v", path, line, fields[2], err)
		}

		if !m.SameEpoch(master) {
			return nil, domain.Configf("%s:%d: master column %s does not match configured master %s",
				path, line, m.Key(), master.Key())
		}
		// Table rows carry day-only dates; acquisitions in a stack share the
		// master's time of day, and the atmospheric fetches depend on it.
		m = m.At(master.Time)
		s = s.At(master.Time)
		key := domain.PairKey(m, s)
		if _, dup := n.records[key]; dup {
			return nil, domain.Configf("%s:%d: duplicate row for pair %s", path, line, key)
		}
		n.records[key] = Record{Master: m, Slave: s, Perpendicular: b}
		n.order = append(n.order, Pair{Master: m, Slave: s})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(n.records) == 0 {
		return nil, domain.Configf("%s: baseline table is empty", path)
	}
	return n, nil
}

// Master returns the stack's master date.
func (n *Network) Master() domain.Date { return n.master }

// BaselineOf returns the perpendicular baseline for a pair, or a
// MissingBaseline error if the table has no matching row.
func (n *Network) BaselineOf(master, slave domain.Date) (float64, error) {
	rec, ok := n.records[domain.PairKey(master, slave)]
	if !ok {
		return 0, &domain.MissingBaselineError{Master: master, Slave: slave}
	}
	return rec.Perpendicular, nil
}

// Pairs returns the expected interferogram pairs in table order.
func (n *Network) Pairs() []Pair {
	return append([]Pair(nil), n.order...)
}
