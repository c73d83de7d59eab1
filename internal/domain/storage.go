package domain

// Preferences is the durable local key/value state: the session token and the
// user's preferred watch-list ordering. Nothing else survives a restart.
type Preferences interface {
	Token() (string, bool)
	SaveToken(token string) error
	ClearToken() error

	WatchListOrder() []string
	SaveWatchListOrder(titles []string) error

	Close() error
}
