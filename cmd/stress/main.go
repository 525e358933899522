// Stress tool: fires concurrent carts at a running checkout server and
// verifies that exactly the available stock is sold.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type purchasePayload struct {
	RequestID string `json:"request_id"`
	Items     []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "checkout server base URL")
	quantity := flag.Int("quantity", 1, "quantity per cart")
	totalRequests := flag.Int("requests", 50, "number of concurrent purchase requests")
	initialStock := flag.Int("stock", 20, "stock to seed the test product with")
	flag.Parse()

	ctx := context.Background()
	client := &http.Client{Timeout: 10 * time.Second}

	productID, err := seedProduct(ctx, client, *baseURL, *initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	log.Printf("seeded product %d with stock %d", productID, *initialStock)

	var fulfilled, rejected, conflicted, failed atomic.Int32

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *totalRequests; i++ {
		g.Go(func() error {
			status, err := purchase(gctx, client, *baseURL, productID, *quantity)
			if err != nil {
				failed.Add(1)
				return nil
			}
			switch status {
			case http.StatusOK:
				fulfilled.Add(1)
			case http.StatusUnprocessableEntity:
				rejected.Add(1)
			case http.StatusConflict:
				conflicted.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	expected := *initialStock / *quantity
	fmt.Println("========== STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Fulfilled:        %d\n", fulfilled.Load())
	fmt.Printf("Rejected:         %d\n", rejected.Load())
	fmt.Printf("Contention:       %d\n", conflicted.Load())
	fmt.Printf("Errors:           %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("====================================")

	if int(fulfilled.Load()) == expected {
		fmt.Printf("PASS: exactly %d purchases fulfilled\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d fulfilled, got %d\n", expected, fulfilled.Load())
	}

	finalStock, err := fetchStock(ctx, client, *baseURL, productID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", finalStock)

	remainder := *initialStock - expected*(*quantity)
	if finalStock == remainder {
		fmt.Printf("PASS: stock drained to %d\n", remainder)
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", remainder, finalStock)
	}
}

func seedProduct(ctx context.Context, client *http.Client, baseURL string, stock int) (int64, error) {
	body, _ := json.Marshal(map[string]any{
		"name":  "stress-item-" + uuid.New().String(),
		"price": 9.99,
		"stock": stock,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/products", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func purchase(ctx context.Context, client *http.Client, baseURL string, productID int64, quantity int) (int, error) {
	payload := purchasePayload{RequestID: uuid.New().String()}
	payload.Items = append(payload.Items, struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}{ProductID: productID, Quantity: quantity})

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/purchase", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	return resp.StatusCode, nil
}

func fetchStock(ctx context.Context, client *http.Client, baseURL string, productID int64) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/products/%d", baseURL, productID), nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var p struct {
		Stock int `json:"stock"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, err
	}
	return p.Stock, nil
}
