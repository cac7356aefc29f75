package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	pgloader "trivia-room-service/internal/infra/postgres"
	pgmigrations "trivia-room-service/internal/infra/postgres/migrations"
	infraredis "trivia-room-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestMatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, 10)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := infraredis.NewQuestionBank(redisClient, pgloader.NewQuestionLoader(pool), 5*time.Minute)
	registry := infraredis.NewRoomRegistry(redisClient, 5*time.Minute)
	service := app.NewGameServiceWithGrace(registry, bank, 100*time.Millisecond)

	created, err := service.CreateRoom(ctx, app.CreateRoomParams{UserID: "A", Name: "Alice", ConnID: "conn-a"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := created.RoomCode

	if exists, _ := redisClient.Exists(ctx, "room:live:"+code).Result(); exists != 1 {
		t.Fatalf("expected redis liveness marker for %s", code)
	}

	if _, err := service.JoinRoom(code, "B", "Bob", "", "conn-b"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.SetReady(code, "B"); err != nil {
		t.Fatalf("ready: %v", err)
	}

	events, cancel, err := service.Subscribe(code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := service.StartGame(code, "A"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Every seeded question keys on option A.
	if err := service.SubmitAnswer(code, "A", "A", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := service.NextQuestion(code); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	ended := waitForEvent(t, events, "gameEnded")
	payload := ended.Payload.(domain.GameEnded)
	if payload.Winner.ID != "A" || payload.Winner.Score != 250 {
		t.Fatalf("expected Alice winning with 250, got %+v", payload.Winner)
	}

	// The finished room disappears after the grace period, marker included.
	deadline := time.After(5 * time.Second)
	for {
		if _, ok := registry.Get(code); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("room not cleaned up after grace period")
		case <-time.After(20 * time.Millisecond):
		}
	}
	if exists, _ := redisClient.Exists(ctx, "room:live:"+code).Result(); exists != 0 {
		t.Fatalf("expected liveness marker removed")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, count int) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i := 0; i < count; i++ {
		_, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, text, option_a, option_b, option_c, option_d, correct_option, difficulty)
			 VALUES (?, ?, 'right', 'wrong', 'wrong', 'wrong', 'A', 'easy')
			 ON CONFLICT (id) DO NOTHING`,
			fmt.Sprintf("q%d", i+1), fmt.Sprintf("Question %d", i+1))
		if err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func waitForEvent(t *testing.T, events <-chan app.Event, eventType string) app.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
