package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const drawSize = 10

// QuestionBank caches question pools in Redis (one JSON value per filter)
// and falls back to a loader on cache miss. Draws reshuffle locally, so the
// cached pool order never pins the match sequence.
type QuestionBank struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
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
	key := b.poolKey(filter)

	if cached, ok := b.cachedPool(ctx, key); ok {
		return cached, nil
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := b.cachedPool(ctx, key); ok {
			return cached, nil
		}

		questions, err := b.loader.LoadQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort cache fill
			_ = b.client.Set(ctx, key, data, b.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cachedPool(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

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

func (b *QuestionBank) poolKey(filter domain.QuestionFilter) string {
	return "questions:pool:" + filter.CategoryID + "|" + filter.Difficulty
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
