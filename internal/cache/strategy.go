package cache

import (
	"container/list"
	"time"
)

// Strategy selects which entry a bounded cache evicts when a Set would
// exceed the size budget.
type Strategy string

const (
	// LRU evicts the least recently used entry.
	LRU Strategy = "lru"

	// LFU evicts the least frequently accessed entry. Ties between
	// entries with equal access counts are broken arbitrarily.
	LFU Strategy = "lfu"

	// FIFO evicts the oldest inserted entry regardless of access history.
	FIFO Strategy = "fifo"

	// TTLSoonest evicts the entry closest to expiry, even if still live.
	TTLSoonest Strategy = "ttl"
)

// policy is the bookkeeping a strategy needs to pick eviction victims.
// The cache calls recordGet/recordSet/forget on its own state transitions
// and victim when it needs space. victim must not mutate policy state;
// the cache calls forget after it actually removes the entry.
type policy interface {
	recordGet(key string)
	recordSet(key string)
	forget(key string)
	victim(entries map[string]*entry, now time.Time) string
}

func newPolicy(s Strategy) policy {
	switch s {
	case LFU:
		return newLFUPolicy()
	case FIFO:
		return fifoPolicy{}
	case TTLSoonest:
		return ttlPolicy{}
	default:
		return newLRUPolicy()
	}
}

// lruPolicy tracks recency with a doubly-linked list: front is the most
// recently used key, back is the victim.
type lruPolicy struct {
	order *list.List
	elems map[string]*list.Element
}

func newLRUPolicy() *lruPolicy {
	return &lruPolicy{order: list.New(), elems: make(map[string]*list.Element)}
}

func (p *lruPolicy) recordGet(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.MoveToFront(el)
	}
}

func (p *lruPolicy) recordSet(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.MoveToFront(el)
		return
	}
	p.elems[key] = p.order.PushFront(key)
}

func (p *lruPolicy) forget(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.Remove(el)
		delete(p.elems, key)
	}
}

func (p *lruPolicy) victim(map[string]*entry, time.Time) string {
	back := p.order.Back()
	if back == nil {
		return ""
	}
	return back.Value.(string)
}

// lfuPolicy buckets keys by access count so the victim lookup does not
// scan every key. minFreq tracks the lowest populated bucket.
type lfuPolicy struct {
	freq    map[string]uint64
	buckets map[uint64]map[string]struct{}
	minFreq uint64
}

func newLFUPolicy() *lfuPolicy {
	return &lfuPolicy{
		freq:    make(map[string]uint64),
		buckets: make(map[uint64]map[string]struct{}),
	}
}

func (p *lfuPolicy) recordGet(key string) {
	n, ok := p.freq[key]
	if !ok {
		return
	}
	delete(p.buckets[n], key)
	if len(p.buckets[n]) == 0 {
		delete(p.buckets, n)
		if p.minFreq == n {
			p.minFreq = n + 1
		}
	}
	p.freq[key] = n + 1
	p.bucket(key, n+1)
}

func (p *lfuPolicy) recordSet(key string) {
	if _, ok := p.freq[key]; ok {
		return
	}
	// A fresh key starts at zero accesses.
	p.freq[key] = 0
	p.bucket(key, 0)
	p.minFreq = 0
}

func (p *lfuPolicy) forget(key string) {
	n, ok := p.freq[key]
	if !ok {
		return
	}
	delete(p.freq, key)
	delete(p.buckets[n], key)
	if len(p.buckets[n]) == 0 {
		delete(p.buckets, n)
		if p.minFreq == n && len(p.buckets) > 0 {
			// forget can hollow out the lowest bucket, so rescan.
			first := true
			for m := range p.buckets {
				if first || m < p.minFreq {
					p.minFreq = m
					first = false
				}
			}
		}
	}
}

func (p *lfuPolicy) victim(map[string]*entry, time.Time) string {
	if len(p.freq) == 0 {
		return ""
	}
	for key := range p.buckets[p.minFreq] {
		return key
	}
	return ""
}

func (p *lfuPolicy) bucket(key string, n uint64) {
	b := p.buckets[n]
	if b == nil {
		b = make(map[string]struct{})
		p.buckets[n] = b
	}
	b[key] = struct{}{}
}

// fifoPolicy needs no bookkeeping of its own: the victim is whichever
// entry carries the oldest insertion timestamp.
type fifoPolicy struct{}

func (fifoPolicy) recordGet(string) {}
func (fifoPolicy) recordSet(string) {}
func (fifoPolicy) forget(string)    {}

func (fifoPolicy) victim(entries map[string]*entry, _ time.Time) string {
	var victim string
	var oldest time.Time
	for key, e := range entries {
		if victim == "" || e.insertedAt.Before(oldest) {
			victim = key
			oldest = e.insertedAt
		}
	}
	return victim
}

// ttlPolicy evicts the entry soonest to expire, live or not.
type ttlPolicy struct{}

func (ttlPolicy) recordGet(string) {}
func (ttlPolicy) recordSet(string) {}
func (ttlPolicy) forget(string)    {}

func (ttlPolicy) victim(entries map[string]*entry, _ time.Time) string {
	var victim string
	var soonest time.Time
	for key, e := range entries {
		if victim == "" || e.expiresAt.Before(soonest) {
			victim = key
			soonest = e.expiresAt
		}
	}
	return victim
}
