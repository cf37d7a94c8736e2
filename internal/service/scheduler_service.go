package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const digestTimeout = 30 * time.Second

// DigestSender posts pending approval digests to group chats.
type DigestSender interface {
	SendPendingDigests(ctx context.Context) error
}

// DigestSchedule says when digests go out. Every and DailyAt may both be
// set; a zero Every and an empty DailyAt disable that trigger.
type DigestSchedule struct {
	Every    time.Duration
	DailyAt  string
	Location *time.Location
}

// DigestScheduler runs the pending approval digest on a cron schedule.
// A run still in progress makes the next tick skip.
type DigestScheduler struct {
	sender  DigestSender
	specs   []string
	loc     *time.Location
	timeout time.Duration
}

func NewDigestScheduler(sender DigestSender, schedule DigestSchedule) (*DigestScheduler, error) {
	specs, err := digestSpecs(schedule)
	if err != nil {
		return nil, err
	}
	loc := schedule.Location
	if loc == nil {
		loc = time.UTC
	}
	return &DigestScheduler{
		sender:  sender,
		specs:   specs,
		loc:     loc,
		timeout: digestTimeout,
	}, nil
}

// Enabled reports whether any trigger is configured.
func (s *DigestScheduler) Enabled() bool {
	return len(s.specs) > 0
}

// Run sends digests on schedule until ctx is done, then waits for a
// running digest to finish.
func (s *DigestScheduler) Run(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return nil
	}
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for _, spec := range s.specs {
		if _, err := c.AddFunc(spec, func() { s.send(ctx) }); err != nil {
			return fmt.Errorf("schedule digest %q: %w", spec, err)
		}
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *DigestScheduler) send(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.sender.SendPendingDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("digest: %v", err)
	}
}

func digestSpecs(schedule DigestSchedule) ([]string, error) {
	var specs []string
	if schedule.Every > 0 {
		seconds := int(schedule.Every.Seconds())
		if seconds <= 0 {
			seconds = 1
		}
		specs = append(specs, fmt.Sprintf("@every %ds", seconds))
	}
	if schedule.DailyAt != "" {
		spec, err := buildDailySpec(schedule.DailyAt)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func buildDailySpec(timeStr string) (string, error) {
	hour, minute, err := parseClock(timeStr)
	if err != nil {
		return "", err
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

func parseClock(timeStr string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", timeStr)
	}
	return hour, minute, nil
}
