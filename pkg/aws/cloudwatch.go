package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const maxLogBatch = 500

// CloudWatchLogsClient ships log lines to one stream. It implements io.Writer
// so it can be tee'd into the zap core; lines are buffered and flushed either
// when the batch fills or on the flush interval.
type CloudWatchLogsClient struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string
	enabled       bool

	mu      sync.Mutex
	pending []types.InputLogEvent
	stop    chan struct{}
	done    chan struct{}
}

// NewCloudWatchLogsClient creates the group and stream when CLOUDWATCH_ENABLED=true.
// When disabled the returned client discards everything written to it.
func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, serviceName string) (*CloudWatchLogsClient, error) {
	enabled := os.Getenv("CLOUDWATCH_ENABLED") == "true"

	logGroupName := os.Getenv("CLOUDWATCH_LOG_GROUP")
	if logGroupName == "" {
		logGroupName = "/pawmart/" + serviceName
	}

	c := &CloudWatchLogsClient{
		client:        cloudwatchlogs.NewFromConfig(cfg),
		logGroupName:  logGroupName,
		logStreamName: fmt.Sprintf("%s-%d", serviceName, time.Now().Unix()),
		enabled:       enabled,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	if !enabled {
		close(c.done)
		return c, nil
	}

	if err := c.ensureLogGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if _, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.logGroupName),
		LogStreamName: sdkaws.String(c.logStreamName),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}

	go c.flushLoop(5 * time.Second)
	return c, nil
}

func (c *CloudWatchLogsClient) ensureLogGroup(ctx context.Context) error {
	_, err := c.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: sdkaws.String(c.logGroupName),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			return err
		}
	}

	_, err = c.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(c.logGroupName),
		RetentionInDays: sdkaws.Int32(30),
	})
	if err != nil {
		return fmt.Errorf("failed to set retention policy: %w", err)
	}
	return nil
}

// Write buffers one log line. It never fails so logging keeps working when
// CloudWatch is unreachable.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	if !c.enabled {
		return len(p), nil
	}

	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}

	c.mu.Lock()
	c.pending = append(c.pending, event)
	full := len(c.pending) >= maxLogBatch
	c.mu.Unlock()

	if full {
		c.Flush(context.Background())
	}
	return len(p), nil
}

// Flush sends buffered events.
func (c *CloudWatchLogsClient) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	_, err := c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  sdkaws.String(c.logGroupName),
		LogStreamName: sdkaws.String(c.logStreamName),
		LogEvents:     batch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch logs flush failed: %v\n", err)
	}
}

func (c *CloudWatchLogsClient) flushLoop(every time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Flush(context.Background())
		case <-c.stop:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.Flush(ctx)
			cancel()
			return
		}
	}
}

// Close flushes what is left and stops the background loop.
func (c *CloudWatchLogsClient) Close() {
	if c.enabled {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
	}
	<-c.done
}

func (c *CloudWatchLogsClient) IsEnabled() bool {
	return c.enabled
}
