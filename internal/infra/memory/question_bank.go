package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// drawSize is the preferred question count per match; smaller pools are used
// as-is.
const drawSize = 10

// QuestionLoader fetches the question pool for a filter from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionBank caches question pools with TTL to avoid repeated store hits.
// Every draw reshuffles the cached pool, so two rooms with the same filter
// still get different sequences.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (b *QuestionBank) DrawQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	pool, err := b.pool(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return b.draw(pool), nil
}

func (b *QuestionBank) pool(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := poolKey(filter)
	now := b.clock()

	b.mu.Lock()
	if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
		b.mu.Unlock()
		return entry.questions, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		now := b.clock()
		b.mu.Lock()
		if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
			b.mu.Unlock()
			return entry.questions, nil
		}
		b.mu.Unlock()

		questions, err := b.loader.LoadQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}

		ttl := b.ttlWithJitter()
		b.mu.Lock()
		b.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(ttl),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// draw copies and shuffles the pool, then takes up to drawSize questions.
func (b *QuestionBank) draw(pool []domain.Question) []domain.Question {
	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)

	b.mu.Lock()
	b.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	b.mu.Unlock()

	if len(shuffled) > drawSize {
		shuffled = shuffled[:drawSize]
	}
	return shuffled
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func poolKey(filter domain.QuestionFilter) string {
	return filter.CategoryID + "|" + filter.Difficulty
}

// StaticQuestionLoader serves questions from a fixed slice, filtering in
// memory (useful for tests/demos and for running without Postgres).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	matched := make([]domain.Question, 0, len(l.questions))
	for _, q := range l.questions {
		if filter.CategoryID != "" && q.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		matched = append(matched, q)
	}
	return matched, nil
}
