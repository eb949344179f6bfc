package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
	)
}

// Business logic logging methods

// LogBookingReserved logs a successful seat claim and booking creation
func (l *Logger) LogBookingReserved(ctx context.Context, bookingID, scheduleID, userID string, attempts int) {
	l.Logger.InfoContext(ctx,
		"Booking Reserved",
		slog.String("booking_id", bookingID),
		slog.String("schedule_id", scheduleID),
		slog.String("user_id", userID),
		slog.Int("claim_attempts", attempts),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, bookingID, scheduleID, actor string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("booking_id", bookingID),
		slog.String("schedule_id", scheduleID),
		slog.String("actor", actor),
	)
}

// LogSeatReleased logs a seat being returned to inventory
func (l *Logger) LogSeatReleased(ctx context.Context, bookingID, scheduleID string) {
	l.Logger.InfoContext(ctx,
		"Seat Released",
		slog.String("booking_id", bookingID),
		slog.String("schedule_id", scheduleID),
	)
}

// LogReserveCompensated logs a seat release performed after a failed ledger write
func (l *Logger) LogReserveCompensated(ctx context.Context, scheduleID, userID string, cause error) {
	l.Logger.WarnContext(ctx,
		"Reserve Compensated",
		slog.String("schedule_id", scheduleID),
		slog.String("user_id", userID),
		slog.String("cause", cause.Error()),
	)
}

// LogExpirySweep logs the outcome of one expiry sweep pass
func (l *Logger) LogExpirySweep(ctx context.Context, examined, cancelled int) {
	if examined == 0 {
		l.Logger.DebugContext(ctx, "Expiry Sweep", slog.Int("examined", 0))
		return
	}
	l.Logger.InfoContext(ctx,
		"Expiry Sweep",
		slog.Int("examined", examined),
		slog.Int("cancelled", cancelled),
	)
}

// LogPaymentVerdict logs a payment authority verdict being applied
func (l *Logger) LogPaymentVerdict(ctx context.Context, bookingID, verdict string) {
	l.Logger.InfoContext(ctx,
		"Payment Verdict",
		slog.String("booking_id", bookingID),
		slog.String("verdict", verdict),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
