package tests

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rl1809/checkout/internal/adapter/storage"
	"github.com/rl1809/checkout/internal/core/domain"
	"github.com/rl1809/checkout/internal/core/service"
)

type testEnv struct {
	mysql     *sql.DB
	redis     *redis.Client
	inventory *storage.MySQLAdapter
	cache     *storage.RedisAdapter
}

func setupTestEnv(t *testing.T) *testEnv {
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/checkout?parseTime=true"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	env := &testEnv{
		mysql:     db,
		redis:     rdb,
		inventory: storage.NewMySQLAdapter(db),
		cache:     storage.NewRedisAdapter(rdb),
	}
	t.Cleanup(func() {
		db.Close()
		rdb.Close()
	})
	return env
}

func (e *testEnv) seedProduct(t *testing.T, stock int) int64 {
	t.Helper()
	p, err := e.inventory.CreateProduct(context.Background(), domain.Product{
		Name:  "itest-" + uuid.New().String(),
		Price: 4.99,
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return p.ID
}

func (e *testEnv) stockOf(t *testing.T, id int64) int {
	t.Helper()
	p, err := e.inventory.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("read stock failed: %v", err)
	}
	return p.Stock
}

func TestIntegration_ConcurrentPurchases_NoOverselling(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	initialStock := 20
	totalRequests := 50
	productID := env.seedProduct(t, initialStock)

	svc := service.NewCheckoutService(env.inventory, nil, nil, 5, zerolog.Nop())

	var fulfilled atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(ctx, "", domain.Cart{{ProductID: productID, Quantity: 1}})
			if err == nil {
				fulfilled.Add(1)
			}
		}()
	}

	wg.Wait()

	got := int(fulfilled.Load())
	if got > initialStock {
		t.Errorf("oversold: %d fulfilled with stock %d", got, initialStock)
	}

	final := env.stockOf(t, productID)
	if final < 0 {
		t.Errorf("stock went negative: %d", final)
	}
	if final != initialStock-got {
		t.Errorf("stock %d does not match %d fulfilled purchases", final, got)
	}
}

func TestIntegration_SequentialScenario(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	productID := env.seedProduct(t, 10)
	svc := service.NewCheckoutService(env.inventory, nil, nil, 0, zerolog.Nop())

	receipt, err := svc.Purchase(ctx, "", domain.Cart{{ProductID: productID, Quantity: 4}})
	if err != nil || receipt.Products[0].Stock != 6 {
		t.Fatalf("first purchase: err=%v receipt=%+v", err, receipt)
	}

	receipt, err = svc.Purchase(ctx, "", domain.Cart{{ProductID: productID, Quantity: 4}})
	if err != nil || receipt.Products[0].Stock != 2 {
		t.Fatalf("second purchase: err=%v receipt=%+v", err, receipt)
	}

	_, err = svc.Purchase(ctx, "", domain.Cart{{ProductID: productID, Quantity: 3}})
	var insufficient *service.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected rejection, got: %v", err)
	}
	if item := insufficient.Items[0]; item.Requested != 3 || item.Available != 2 {
		t.Errorf("expected requested 3 available 2, got %+v", item)
	}

	if final := env.stockOf(t, productID); final != 2 {
		t.Errorf("expected final stock 2, got %d", final)
	}
}

func TestIntegration_MultiProductAtomicity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	idA := env.seedProduct(t, 1)
	idB := env.seedProduct(t, 10)
	svc := service.NewCheckoutService(env.inventory, nil, nil, 0, zerolog.Nop())

	cart := domain.Cart{
		{ProductID: idA, Quantity: 3},
		{ProductID: idB, Quantity: 5},
	}
	_, err := svc.Purchase(ctx, "", cart)

	var insufficient *service.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected rejection, got: %v", err)
	}
	if len(insufficient.Items) != 1 || insufficient.Items[0].ProductID != idA {
		t.Errorf("only the short product may be listed, got %v", insufficient.Items)
	}

	if env.stockOf(t, idA) != 1 || env.stockOf(t, idB) != 10 {
		t.Error("rejected cart mutated stock")
	}
}

func TestIntegration_IdempotencyPreventsDoubleFulfil(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	productID := env.seedProduct(t, 10)
	svc := service.NewCheckoutService(env.inventory, env.cache, nil, 0, zerolog.Nop())

	requestID := "itest-" + uuid.New().String()
	cart := domain.Cart{{ProductID: productID, Quantity: 1}}

	if _, err := svc.Purchase(ctx, requestID, cart); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}

	_, err := svc.Purchase(ctx, requestID, cart)
	if !errors.Is(err, service.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	if final := env.stockOf(t, productID); final != 9 {
		t.Errorf("stock should only be decremented once, got %d", final)
	}
}

func TestIntegration_FulfilledPurchaseRecordsReservation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	productID := env.seedProduct(t, 5)
	svc := service.NewCheckoutService(env.inventory, nil, nil, 0, zerolog.Nop())

	receipt, err := svc.Purchase(ctx, "", domain.Cart{{ProductID: productID, Quantity: 2}})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	var qty int
	err = env.mysql.QueryRowContext(ctx, `
		SELECT quantity FROM reservation_items
		WHERE reservation_id = ? AND product_id = ?`,
		receipt.ReservationID, productID,
	).Scan(&qty)
	if err != nil {
		t.Fatalf("reservation row missing: %v", err)
	}
	if qty != 2 {
		t.Errorf("expected reserved quantity 2, got %d", qty)
	}

	// Cleanup
	env.mysql.ExecContext(ctx, `DELETE FROM reservation_items WHERE reservation_id = ?`, receipt.ReservationID)
	env.mysql.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, receipt.ReservationID)
}
