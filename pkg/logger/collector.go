package logger

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Publisher ships aggregated log entries, e.g. to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries before an early flush
	Topic          string
	Publisher      Publisher
}

// AggregatedLogEntry is one warn/error message with its repeat count.
// Fields hold the values of the most recent occurrence.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates warn/error logs by level, message and caller and
// publishes them in batches.
type LogCollector struct {
	config *CollectionConfig
	logMap map[string]*AggregatedLogEntry
	mutex  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &LogCollector{
		config: config,
		logMap: make(map[string]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.periodicFlush()

	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, caller)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.logMap[key]; ok {
		entry.Count++
		entry.LastSeen = now
		entry.Fields = fields
	} else {
		c.logMap[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.logMap) >= c.config.CountThreshold {
		c.publish(c.drain())
	}
}

// Pending returns a snapshot of unflushed entries, most frequent first.
func (c *LogCollector) Pending() []AggregatedLogEntry {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return sortedEntries(c.logMap)
}

func entryKey(level, message, caller string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(level+"\x00"+message+"\x00"+caller)))
}

func (c *LogCollector) periodicFlush() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			logs := c.drain()
			c.mutex.Unlock()
			c.publish(logs)
		case <-c.ctx.Done():
			return
		}
	}
}

// drain must be called with the mutex held.
func (c *LogCollector) drain() []AggregatedLogEntry {
	if len(c.logMap) == 0 {
		return nil
	}
	logs := sortedEntries(c.logMap)
	c.logMap = make(map[string]*AggregatedLogEntry)
	return logs
}

func (c *LogCollector) publish(logs []AggregatedLogEntry) {
	if len(logs) == 0 || c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, logs); err != nil {
		fmt.Printf("failed to send aggregated logs: %v\n", err)
	}
}

func sortedEntries(m map[string]*AggregatedLogEntry) []AggregatedLogEntry {
	out := make([]AggregatedLogEntry, 0, len(m))
	for _, e := range m {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// Close stops the flush loop and publishes what is left.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
	c.mutex.Lock()
	logs := c.drain()
	c.mutex.Unlock()
	c.publish(logs)
}
