package auth

// Known OAuth scopes used by the backend services.
const (
	ScopeActivityRead    = "activity:read"
	ScopeActivityWrite   = "activity:write"
	ScopeChallengesRead  = "challenges:read"
	ScopeChallengesWrite = "challenges:write"
)
