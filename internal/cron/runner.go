package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"auctionhub/internal/lock"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
	locker  lock.Locker
	lockTTL time.Duration
}

type Options struct {
	Location *time.Location
	Locker   lock.Locker
	// LockTTL bounds how long a crashed tick can keep its task locked.
	LockTTL time.Duration
}

func New(logger *zap.Logger, baseCtx context.Context, opts Options) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	cl := cronLogger{logger: logger.Named("cron")}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
		locker:  locker,
		lockTTL: ttl,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { job(r.baseCtx) })
}

// AddNamed schedules job under name. A tick is skipped while the previous
// tick of the same name still holds its lock.
func (r *Runner) AddNamed(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { r.runNamed(name, job) })
}

func (r *Runner) runNamed(name string, job func(context.Context)) {
	unlock, ok, err := r.locker.TryLock(r.baseCtx, "cron:"+name, r.lockTTL)
	if err != nil {
		r.logger.Warn("cron lock failed", zap.String("task", name), zap.Error(err))
		return
	}
	if !ok {
		r.logger.Info("cron tick skipped, previous run still active", zap.String("task", name))
		return
	}
	defer unlock()
	start := time.Now()
	job(r.baseCtx)
	r.logger.Info("cron task done", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("kv", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
