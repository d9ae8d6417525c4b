// Package aggregate holds each account's collected articles for one run.
package aggregate

import (
	"errors"
	"fmt"
	"sync"

	"digestbot/types"
)

// ErrUnknownAccount is returned when storing articles for an account that
// no group registered
var ErrUnknownAccount = errors.New("unknown account")

// Aggregator maps accounts to their filtered articles with thread-safe
// access. Account order is fixed at construction: groups in order, accounts
// within a group in order. An account listed by more than one group belongs
// to the first.
type Aggregator struct {
	mu sync.RWMutex

	groups  []string
	order   []string
	groupOf map[string]string
	slots   map[string][]types.Article
}

// New registers every account of groups
func New(groups []types.AccountGroup) *Aggregator {
	a := &Aggregator{
		groupOf: make(map[string]string),
		slots:   make(map[string][]types.Article),
	}
	for _, g := range groups {
		a.groups = append(a.groups, g.Name)
		for _, account := range g.Accounts {
			if _, taken := a.groupOf[account]; taken {
				continue
			}
			a.groupOf[account] = g.Name
			a.order = append(a.order, account)
		}
	}
	return a
}

// Accounts lists registered accounts in result order
func (a *Aggregator) Accounts() []string {
	return append([]string(nil), a.order...)
}

// GroupOf returns the group an account was registered under
func (a *Aggregator) GroupOf(account string) (string, bool) {
	g, ok := a.groupOf[account]
	return g, ok
}

// Set stores the articles for one account, replacing any previous value
func (a *Aggregator) Set(account string, articles []types.Article) error {
	if _, ok := a.groupOf[account]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	stored := append([]types.Article(nil), articles...)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots[account] = stored
	return nil
}

// Total is the article count across all accounts
func (a *Aggregator) Total() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	total := 0
	for _, articles := range a.slots {
		total += len(articles)
	}
	return total
}

// Result returns a snapshot with one entry per registered account, including
// accounts that produced nothing.
func (a *Aggregator) Result() types.AggregatedResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := types.AggregatedResult{Accounts: make([]types.AccountArticles, 0, len(a.order))}
	for _, account := range a.order {
		result.Accounts = append(result.Accounts, types.AccountArticles{
			Account:  account,
			Group:    a.groupOf[account],
			Articles: append([]types.Article{}, a.slots[account]...),
		})
	}
	return result
}

// ByGroup flattens the snapshot into group order for summarization
func (a *Aggregator) ByGroup() []types.GroupArticles {
	return GroupResult(a.Result(), a.groups)
}

// GroupResult arranges result by the given group order. Groups with no
// accounts in result are omitted; unlisted groups follow in first-seen order.
func GroupResult(result types.AggregatedResult, groupOrder []string) []types.GroupArticles {
	index := make(map[string]int)
	var out []types.GroupArticles

	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(out)
		out = append(out, types.GroupArticles{Group: name})
		return len(out) - 1
	}

	for _, name := range groupOrder {
		add(name)
	}
	for _, acc := range result.Accounts {
		i := add(acc.Group)
		out[i].Accounts = append(out[i].Accounts, acc)
	}

	kept := out[:0]
	for _, g := range out {
		if len(g.Accounts) > 0 {
			kept = append(kept, g)
		}
	}
	return kept
}
