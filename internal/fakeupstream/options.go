package fakeupstream

const (
	defaultMembers   = 12
	defaultProblems  = 80
	defaultTags      = 10
	defaultPeers     = 7
	defaultSolveRate = 20
	defaultPageSize  = 5
)

// Option configures Generate.
type Option func(*options)

type options struct {
	seed         uint64
	organization string
	category     string
	members      int
	problems     int
	tags         int
	peers        int
	solveRate    int
	missingEvery int
	unratedEvery int
}

func defaultOptions() *options {
	return &options{
		seed:         1,
		organization: "하나고등학교",
		category:     "high_school",
		members:      defaultMembers,
		problems:     defaultProblems,
		tags:         defaultTags,
		peers:        defaultPeers,
		solveRate:    defaultSolveRate,
	}
}

// WithSeed selects the dataset.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithOrganization names the organization the crawler looks for.
func WithOrganization(name, category string) Option {
	return func(o *options) {
		if name != "" {
			o.organization = name
		}
		if category != "" {
			o.category = category
		}
	}
}

// WithMembers sets the member count.
func WithMembers(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.members = n
		}
	}
}

// WithProblems sets the size of the problem pool members solve from.
func WithProblems(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.problems = n
		}
	}
}

// WithTags sets the catalog size.
func WithTags(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.tags = n
		}
	}
}

// WithPeers sets the number of organizations in the category.
func WithPeers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.peers = n
		}
	}
}

// WithSolveRate sets the chance, in percent, that a member solved a problem.
func WithSolveRate(pct int) Option {
	return func(o *options) {
		if pct >= 0 && pct <= 100 {
			o.solveRate = pct
		}
	}
}

// WithMissingProfiles makes every nth member's profile answer 404.
func WithMissingProfiles(every int) Option {
	return func(o *options) { o.missingEvery = every }
}

// WithUnratedProfiles makes every nth member's profile omit rating, coins and
// stardusts.
func WithUnratedProfiles(every int) Option {
	return func(o *options) { o.unratedEvery = every }
}

// ServerOption configures NewServer.
type ServerOption func(*Server)

// WithPageSize sets the page size of every paginated endpoint.
func WithPageSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithFailEvery answers 503 to every nth API request.
func WithFailEvery(n int) ServerOption {
	return func(s *Server) { s.failEvery = int64(n) }
}
