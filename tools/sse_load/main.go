// Command sse_load opens many /decisions/stream connections against a running
// quorum server and optionally drives /decide to generate events.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/quorum/internal/domain"
)

type options struct {
	baseURL     string
	connections int
	duration    time.Duration
	rampUp      time.Duration
	decideRate  time.Duration
}

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	decisions   atomic.Int64
	heartbeats  atomic.Int64
	posted      atomic.Int64
	postErrs    atomic.Int64
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "sse_load",
		Short: "Load test the quorum decision stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			return run(cmd.Context(), logger, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "quorum server base URL")
	cmd.Flags().IntVar(&opts.connections, "conns", 1000, "number of concurrent stream connections")
	cmd.Flags().DurationVar(&opts.duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	cmd.Flags().DurationVar(&opts.rampUp, "ramp", 0, "spread connection starts across this window")
	cmd.Flags().DurationVar(&opts.decideRate, "decide-every", 0, "POST a random feature vector at this interval (0 disables)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(parent context.Context, logger *zap.Logger, opts options) error {
	if opts.connections <= 0 {
		return fmt.Errorf("invalid conns: %d", opts.connections)
	}
	if opts.rampUp == 0 && opts.connections > 100 {
		// 1 second per 500 connections, at least 1s
		opts.rampUp = max(time.Duration(opts.connections/500)*time.Second, time.Second)
		logger.Info("using default ramp-up", zap.Duration("ramp", opts.rampUp))
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     opts.connections + 100,
			MaxIdleConns:        opts.connections + 100,
			MaxIdleConnsPerHost: opts.connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting decision stream load",
		zap.String("url", opts.baseURL),
		zap.Int("conns", opts.connections),
		zap.Duration("duration", opts.duration),
		zap.Duration("ramp", opts.rampUp))

	var c counters
	start := time.Now()

	g := new(errgroup.Group)
	g.Go(func() error {
		reportStatus(ctx, logger, &c, start)
		return nil
	})
	if opts.decideRate > 0 {
		g.Go(func() error {
			drive(ctx, client, opts.baseURL, opts.decideRate, &c)
			return nil
		})
	}

	var interval time.Duration
	if opts.rampUp > 0 {
		interval = opts.rampUp / time.Duration(opts.connections)
	}

	for i := 0; i < opts.connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		g.Go(func() error {
			stream(ctx, client, opts.baseURL+"/decisions/stream", &c)
			return nil
		})
	}

	_ = g.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d decisions=%d heartbeats=%d posted=%d post_errs=%d elapsed=%s decisions/s=%.2f\n",
		c.connected.Load(),
		c.connectErrs.Load(),
		c.streamErrs.Load(),
		c.decisions.Load(),
		c.heartbeats.Load(),
		c.posted.Load(),
		c.postErrs.Load(),
		elapsed.Truncate(time.Millisecond),
		float64(c.decisions.Load())/elapsed.Seconds(),
	)
	return nil
}

func stream(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}

	c.connected.Add(1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				c.streamErrs.Add(1)
			}
			return
		}
		switch {
		case strings.HasPrefix(line, "event: decision"):
			c.decisions.Add(1)
		case strings.HasPrefix(line, ":"):
			c.heartbeats.Add(1)
		}
	}
}

func drive(ctx context.Context, client *http.Client, baseURL string, every time.Duration, c *counters) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			body, err := json.Marshal(randomVector())
			if err != nil {
				c.postErrs.Add(1)
				continue
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/decide", bytes.NewReader(body))
			if err != nil {
				c.postErrs.Add(1)
				continue
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				c.postErrs.Add(1)
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				c.postErrs.Add(1)
				continue
			}
			c.posted.Add(1)
		}
	}
}

func randomVector() domain.FeatureVector {
	return domain.FeatureVector{
		SentimentIndex:    rand.Float64() * 100,
		Volatility:        rand.Float64(),
		Momentum:          rand.Float64()*2 - 1,
		OnchainChangePct:  rand.Float64()*40 - 20,
		VolumeChangePct:   rand.Float64()*100 - 50,
		NarrativeStrength: rand.Float64(),
		MemeVelocity:      rand.Float64(),
		SystemHealth:      0.5 + rand.Float64()/2,
		AgentSyncScore:    rand.Float64(),
	}
}

func reportStatus(ctx context.Context, logger *zap.Logger, c *counters, start time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("status",
				zap.Int64("connected", c.connected.Load()),
				zap.Int64("connect_errs", c.connectErrs.Load()),
				zap.Int64("stream_errs", c.streamErrs.Load()),
				zap.Int64("decisions", c.decisions.Load()),
				zap.Int64("posted", c.posted.Load()),
				zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))
		}
	}
}
