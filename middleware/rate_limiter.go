package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var rdb *redis.Client

const (
	AlgFixedWindow   = "fixed_window"
	AlgSlidingWindow = "sliding_window"
	AlgTokenBucket   = "token_bucket"

	ScopeIP      = "ip"
	ScopeSession = "session"
	ScopeGlobal  = "global"
)

// RateLimitConfig defines rules for different endpoints
type RateLimitConfig struct {
	MaxRequests int           // Maximum requests
	Window      time.Duration // Time window
	Burst       int           // Burst allowance for token bucket
	Algorithm   string
	Scope       string
}

var rateLimitRules = map[string]RateLimitConfig{
	// public registration endpoints
	"registration": {
		MaxRequests: 10,
		Window:      time.Minute,
		Algorithm:   AlgSlidingWindow,
		Scope:       ScopeIP,
	},
	// one chat session answers at human speed
	"chat": {
		MaxRequests: 30,
		Window:      time.Minute,
		Algorithm:   AlgTokenBucket,
		Burst:       5,
		Scope:       ScopeSession,
	},
	"chat_new": {
		MaxRequests: 10,
		Window:      10 * time.Minute,
		Algorithm:   AlgFixedWindow,
		Scope:       ScopeIP,
	},
	"staff_write": {
		MaxRequests: 30,
		Window:      time.Minute,
		Algorithm:   AlgSlidingWindow,
		Scope:       ScopeIP,
	},
	"maintenance": {
		MaxRequests: 5,
		Window:      time.Minute,
		Algorithm:   AlgFixedWindow,
		Scope:       ScopeGlobal,
	},
	"read": {
		MaxRequests: 120,
		Window:      time.Minute,
		Algorithm:   AlgSlidingWindow,
		Scope:       ScopeIP,
	},

	"global_ip": {
		MaxRequests: 1000,
		Window:      time.Minute,
		Algorithm:   AlgSlidingWindow,
		Scope:       ScopeIP,
	},
}

func InitRateLimiter(redisClient *redis.Client) {
	rdb = redisClient
}

// getRateLimitRule picks the rule for a request. fullPath is the route
// template, so path parameters never produce distinct rules.
func getRateLimitRule(fullPath, method string) RateLimitConfig {
	switch {
	case fullPath == "/chat/:session" && method == http.MethodPost:
		return rateLimitRules["chat"]
	case strings.HasPrefix(fullPath, "/students/") && method == http.MethodPost:
		return rateLimitRules["registration"]
	case fullPath == "/instances/generate", strings.HasPrefix(fullPath, "/maintenance/"):
		return rateLimitRules["maintenance"]
	case method == http.MethodGet:
		return rateLimitRules["read"]
	default:
		return rateLimitRules["staff_write"]
	}
}

func getIdentifier(c *gin.Context, scope string) string {
	switch scope {
	case ScopeSession:
		if session := c.Param("session"); session != "" && session != "new" {
			return "session:" + session
		}
		return "ip:" + c.ClientIP()
	case ScopeGlobal:
		return "global"
	default:
		return "ip:" + c.ClientIP()
	}
}

func fixedWindowRateLimit(ctx context.Context, key string, config RateLimitConfig) (bool, int, error) {
	redisKey := fmt.Sprintf("rate:fw:%s", key)

	luaScript := `
	local key = KEYS[1]
	local expiry = ARGV[1]
	local limit = tonumber(ARGV[2])

	local current = redis.call('GET', key)

	if current == false then
		redis.call('SET', key, 1, 'EX', expiry)
		return {1, limit - 1}
	else
		local count = tonumber(current)
		if count >= limit then
			return {count + 1, 0}
		end

		local new_count = redis.call('INCR', key)
		return {new_count, limit - new_count}
	end
	`

	result, err := rdb.Eval(ctx, luaScript, []string{redisKey},
		int(config.Window.Seconds()), config.MaxRequests).Int64Slice()
	if err != nil {
		return false, 0, err
	}

	allowed := result[0] <= int64(config.MaxRequests)
	return allowed, int(result[1]), nil
}

func slidingWindowRateLimit(ctx context.Context, key string, config RateLimitConfig) (bool, int, error) {
	now := time.Now()
	windowStart := now.Add(-config.Window).UnixMilli()

	redisKey := fmt.Sprintf("rate:sw:%s", key)

	// members are nanosecond stamps so requests within the same second count apart
	luaScript := `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_seconds = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current >= max_requests then
		return {0, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('EXPIRE', key, window_seconds + 60)

	local remaining = max_requests - current - 1
	if remaining < 0 then remaining = 0 end

	return {1, remaining}
	`

	result, err := rdb.Eval(ctx, luaScript, []string{redisKey},
		now.UnixMilli(), windowStart, config.MaxRequests, int(config.Window.Seconds()), now.UnixNano()).Int64Slice()
	if err != nil {
		return false, 0, err
	}

	return result[0] == 1, int(result[1]), nil
}

func tokenBucketRateLimit(ctx context.Context, key string, config RateLimitConfig) (bool, int, error) {
	now := time.Now().Unix()

	redisKey := fmt.Sprintf("rate:tb:%s", key)

	luaScript := `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local max_tokens = tonumber(ARGV[2])
	local refill_rate = tonumber(ARGV[3])
	local burst = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_update')

	local tokens = max_tokens
	local last_update = now

	if bucket[1] and bucket[2] then
		tokens = tonumber(bucket[1])
		last_update = tonumber(bucket[2])

		local refill_tokens = math.floor((now - last_update) * refill_rate)
		if refill_tokens > 0 then
			tokens = math.min(max_tokens + burst, tokens + refill_tokens)
			last_update = now
		end
	end

	if tokens < 1 then
		redis.call('HSET', key, 'tokens', tokens, 'last_update', last_update)
		redis.call('EXPIRE', key, 3600)
		return {0, 0}
	end

	tokens = tokens - 1
	redis.call('HSET', key, 'tokens', tokens, 'last_update', last_update)
	redis.call('EXPIRE', key, 3600)

	local remaining = math.floor(tokens)
	if remaining < 0 then remaining = 0 end

	return {1, remaining}
	`

	refillRate := float64(config.MaxRequests) / config.Window.Seconds()

	result, err := rdb.Eval(ctx, luaScript, []string{redisKey},
		now, config.MaxRequests, refillRate, config.Burst).Int64Slice()
	if err != nil {
		return false, 0, err
	}

	return result[0] == 1, int(result[1]), nil
}

func applyRule(ctx context.Context, key string, rule RateLimitConfig) (bool, int, error) {
	switch rule.Algorithm {
	case AlgFixedWindow:
		return fixedWindowRateLimit(ctx, key, rule)
	case AlgTokenBucket:
		return tokenBucketRateLimit(ctx, key, rule)
	default:
		return slidingWindowRateLimit(ctx, key, rule)
	}
}

// RateLimiter throttles requests per route template. Redis failures let the
// request through.
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if rdb == nil || path == "" || path == "/health" || path == "/metrics" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		globalKey := fmt.Sprintf("global:ip:%s", c.ClientIP())
		globalAllowed, _, err := slidingWindowRateLimit(ctx, globalKey, rateLimitRules["global_ip"])
		if err == nil && !globalAllowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Demasiadas solicitudes",
				"code":    "RATE_LIMIT_GLOBAL_IP",
			})
			return
		}

		rule := getRateLimitRule(path, c.Request.Method)
		if path == "/chat/:session" && c.Param("session") == "new" {
			rule = rateLimitRules["chat_new"]
		}
		identifier := getIdentifier(c, rule.Scope)
		key := fmt.Sprintf("%s:%s:%s:%s", rule.Scope, c.Request.Method, path, identifier)

		allowed, remaining, err := applyRule(ctx, key, rule)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rule.MaxRequests))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(rule.Window).Unix()))

		if !allowed {
			log.Warn().
				Str("method", c.Request.Method).
				Str("path", path).
				Str("identifier", identifier).
				Str("algorithm", rule.Algorithm).
				Msg("rate limit exceeded")

			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       fmt.Sprintf("Demasiadas solicitudes, intentá de nuevo en %v", rule.Window),
				"code":        "RATE_LIMIT_EXCEEDED",
				"retry_after": int(rule.Window.Seconds()),
				"limit":       rule.MaxRequests,
				"window":      rule.Window.String(),
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Next()
	}
}
