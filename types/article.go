package types

// Article is one normalized search result. Title is the identity key used for
// deduplication; Timestamp is "YYYY-MM-DD HH:MM:SS" or empty when unknown.
type Article struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Timestamp string `json:"datetime"`
	Source    string `json:"source"`
	// Group is the account group the article was fetched for. It is assigned
	// by the caller of the fetcher, never derived from the payload.
	Group string `json:"-"`
}

// Date returns the first 10 characters of the timestamp, or "" when the
// timestamp is unknown.
func (a Article) Date() string {
	if len(a.Timestamp) < 10 {
		return a.Timestamp
	}
	return a.Timestamp[:10]
}

// AccountGroup is a named cluster of accounts sharing one query template.
// The template may contain {account}, {year} and {month} placeholders.
type AccountGroup struct {
	Name          string   `json:"name"`
	Accounts      []string `json:"accounts"`
	QueryTemplate string   `json:"query_template"`
}

// AccountArticles is one account's slot in an aggregated result.
type AccountArticles struct {
	Account  string    `json:"account"`
	Group    string    `json:"group"`
	Articles []Article `json:"articles"`
}

// AggregatedResult keeps each account's filtered, deduplicated articles in
// configured account order.
type AggregatedResult struct {
	Accounts []AccountArticles `json:"accounts"`
}

// Total is the sum of article counts across all accounts.
func (r AggregatedResult) Total() int {
	total := 0
	for _, a := range r.Accounts {
		total += len(a.Articles)
	}
	return total
}

// Get returns the articles stored for account.
func (r AggregatedResult) Get(account string) ([]Article, bool) {
	for _, a := range r.Accounts {
		if a.Account == account {
			return a.Articles, true
		}
	}
	return nil, false
}

// AccountNames lists the accounts in result order.
func (r AggregatedResult) AccountNames() []string {
	names := make([]string, 0, len(r.Accounts))
	for _, a := range r.Accounts {
		names = append(names, a.Account)
	}
	return names
}

// GroupArticles is one group of the flattened view used for summarization.
type GroupArticles struct {
	Group    string            `json:"group"`
	Accounts []AccountArticles `json:"accounts"`
}
