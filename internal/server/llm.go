package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"notionboard/internal/llm"
	"notionboard/internal/models"
)

// limiterIdle is how long a caller's bucket survives without requests.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet hands out one token bucket per caller key. Idle buckets are
// dropped at most once per limiterIdle.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

// newLimiterSet allows perMinute requests per key. Zero or less disables
// limiting.
func newLimiterSet(perMinute int) *limiterSet {
	if perMinute <= 0 {
		return &limiterSet{limit: rate.Inf}
	}
	return &limiterSet{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (l *limiterSet) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdle {
		for k, e := range l.limiters {
			if now.Sub(e.seen) >= limiterIdle {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (l *limiterSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

const (
	modeAnalyze        = ""
	modeTaskBreakdown  = "task_breakdown"
	modeSprintPlanning = "sprint_planning"
	modeProjectHealth  = "project_health"
)

type suggestionRequest struct {
	llm.Request
	Mode string `json:"mode"`
}

var (
	errLLMNotConfigured = errors.New("DeepSeek API is not configured. Please set DEEPSEEK_API_KEY environment variable.")
	errRateLimited      = errors.New("Too many suggestion requests. Please wait a moment and try again.")
)

// handleSuggestions forwards board context to the chat completion API.
func (s *Server) handleSuggestions(c *gin.Context, sess Session) {
	if s.llm == nil || !s.llm.Configured() {
		s.respondError(c, http.StatusServiceUnavailable, errLLMNotConfigured)
		return
	}

	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !s.limiters.Allow(sess.Key(c)) {
		s.respondError(c, http.StatusTooManyRequests, errRateLimited)
		return
	}

	ctx := c.Request.Context()
	var result models.Analysis
	switch req.Mode {
	case modeAnalyze:
		if req.Context == "" {
			s.respondError(c, http.StatusBadRequest, errors.New("Context is required"))
			return
		}
		result = s.llm.Analyze(ctx, req.Request)
	case modeTaskBreakdown:
		if len(req.Tasks) == 0 {
			s.respondError(c, http.StatusBadRequest, errors.New("A task is required"))
			return
		}
		result = s.llm.TaskBreakdown(ctx, req.Tasks[0], req.Context)
	case modeSprintPlanning:
		if len(req.Sprints) == 0 {
			s.respondError(c, http.StatusBadRequest, errors.New("A sprint is required"))
			return
		}
		result = s.llm.SprintPlanning(ctx, req.Tasks, req.Sprints[0])
	case modeProjectHealth:
		result = s.llm.ProjectHealth(ctx, req.Tasks, req.Sprints, req.Epics)
	default:
		s.respondError(c, http.StatusBadRequest, errors.New("unknown mode "+req.Mode))
		return
	}
	respondSuccess(c, http.StatusOK, result)
}
