package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/henryaspegren/fastsig/aggs"
	"github.com/henryaspegren/fastsig/batchsig"
	"github.com/henryaspegren/fastsig/historytree"
	"github.com/urfave/cli"
	"golang.org/x/time/rate"
)

// countingPrims counts the primitive operations the queues ask for.
type countingPrims struct {
	batchsig.SignaturePrimitives
	signs    atomic.Int64
	verifies atomic.Int64
}

func (p *countingPrims) Sign(data []byte) (batchsig.Signature, error) {
	p.signs.Add(1)
	return p.SignaturePrimitives.Sign(data)
}

func (p *countingPrims) Verify(data []byte, sig batchsig.Signature) bool {
	p.verifies.Add(1)
	return p.SignaturePrimitives.Verify(data, sig)
}

func newPrimitives(algo string, bits int) (batchsig.SignaturePrimitives, error) {
	if algo == "digest" {
		return batchsig.NewDigestPrimitive("batchbench"), nil
	}
	return batchsig.GenerateCoseSigner(algo, bits)
}

func newQueue(c *cli.Context, log logger.Logger, prims batchsig.SignaturePrimitives, opts []batchsig.QueueOption) (batchsig.SigningQueue, func(), error) {
	noop := func() {}
	switch c.String("queue") {
	case "simple":
		q, err := batchsig.NewSimpleQueue(log, prims, opts...)
		return q, noop, err
	case "merkle":
		q, err := batchsig.NewMerkleQueue(log, prims, opts...)
		return q, noop, err
	case "history":
		closer := noop
		if path := c.String("leveldb"); path != "" {
			store, err := historytree.OpenLevelDBStore(path, log)
			if err != nil {
				return nil, nil, err
			}
			log.Infof("history log in %s resumes at version %d", path, store.Time())
			opts = append(opts, batchsig.WithStore(store))
			closer = func() {
				if err := store.Close(); err != nil {
					log.Infof("closing history log: %v", err)
				}
			}
		}
		q, err := batchsig.NewHistoryQueue(log, prims, opts...)
		return q, closer, err
	default:
		return nil, nil, fmt.Errorf("unknown queue type %q", c.String("queue"))
	}
}

func runBench(c *cli.Context) error {
	logger.New(c.String("log-level"))
	defer logger.OnExit()
	log := logger.Sugar.WithServiceName("batchbench")

	aggobj, err := aggs.DefaultRegistry().Lookup(c.String("aggregator"))
	if err != nil {
		return err
	}
	base, err := newPrimitives(c.String("algo"), c.Int("bits"))
	if err != nil {
		return err
	}
	prims := &countingPrims{SignaturePrimitives: base}

	opts := []batchsig.QueueOption{
		batchsig.WithAggregator(aggobj),
		batchsig.WithSpliceWindow(c.Int("splice-window")),
	}
	q, closeQueue, err := newQueue(c, log, prims, opts)
	if err != nil {
		return err
	}
	defer closeQueue()

	recipients := c.Int("recipients")
	if recipients <= 0 {
		recipients = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("duration"))
	defer cancel()

	var mu sync.Mutex
	var produced []*batchsig.BasicMessage

	limiter := rate.NewLimiter(rate.Limit(c.Float64("rate")), 1)
	limit := c.Int("messages")
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		for i := 0; limit == 0 || i < limit; i++ {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			msg := batchsig.NewBasicMessage(
				fmt.Sprintf("recipient-%d", i%recipients), "batchbench",
				[]byte(fmt.Sprintf("message %d at %s", i, time.Now().Format(time.RFC3339Nano))))
			mu.Lock()
			produced = append(produced, msg)
			mu.Unlock()
			q.Add(msg)
		}
	}()

	var flushErr error
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.Duration("flush"))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := q.Flush(ctx); err != nil && ctx.Err() == nil {
					flushErr = err
					cancel()
					return
				}
			}
		}
	}()
	wg.Wait()
	if flushErr != nil {
		return flushErr
	}
	if err := q.Flush(context.Background()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := c.App.Writer
	fmt.Fprintf(out, "queue %s, algorithm %s, aggregator %s\n", c.String("queue"), c.String("algo"), aggobj.Name())
	fmt.Fprintf(out, "messages: %d in %v (%.1f/s)\n", len(produced), elapsed.Round(time.Millisecond), float64(len(produced))/elapsed.Seconds())
	fmt.Fprintf(out, "signatures: %d\n", prims.signs.Load())

	if !c.Bool("verify") {
		return nil
	}
	return verifyProduced(c, log, prims, produced)
}

func verifyProduced(c *cli.Context, log logger.Logger, prims *countingPrims, produced []*batchsig.BasicMessage) error {
	var verifier batchsig.SignaturePrimitives = prims
	if size := c.Int("cache"); size > 0 {
		cache, err := batchsig.NewCachingSigner(prims, size)
		if err != nil {
			return err
		}
		verifier = cache
	}
	v, err := batchsig.NewVerifyQueue(log, verifier)
	if err != nil {
		return err
	}

	prims.verifies.Store(0)
	start := time.Now()
	for _, msg := range produced {
		v.Add(msg)
	}
	if err := v.Flush(context.Background()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	valid := 0
	for _, msg := range produced {
		if ok, _ := msg.Validity(); ok {
			valid++
		}
	}
	out := c.App.Writer
	fmt.Fprintf(out, "verified: %d of %d valid in %v\n", valid, len(produced), elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "signature verifications: %d\n", prims.verifies.Load())
	if valid != len(produced) {
		return fmt.Errorf("%d messages failed verification", len(produced)-valid)
	}
	return nil
}
