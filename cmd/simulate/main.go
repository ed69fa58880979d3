package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"mayhem-storefront/internal/database"
	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/infrastructure/payment"
	"mayhem-storefront/internal/messaging"
	"mayhem-storefront/internal/notify"
	"mayhem-storefront/internal/repo"
	"mayhem-storefront/internal/service"
	"mayhem-storefront/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const secret = "simulate-secret"

// Drives the webhook pipeline against a real database: one pending order, the
// same checkout.session.completed event delivered three times, plus an
// unknown event type. The interesting output is what the duplicates do NOT
// change.
func main() {
	ctx := context.Background()
	db := database.NewPostgres()
	defer db.Close()

	if err := database.Bootstrap(ctx, db); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	orderRepo := repo.NewOrderRepo(db)
	ledgerRepo := repo.NewLedgerRepo(db)
	stockRepo := repo.NewStockRepo(db)

	hub := notify.NewHub()
	adminCh, cancelAdmin := hub.Subscribe(notify.AdminRoom)
	defer cancelAdmin()
	go func() {
		for n := range adminCh {
			fmt.Printf("    [admin room] %s: %v\n", n.Type, n.Payload["message"])
		}
	}()

	ledgerService := service.NewLedgerService(ledgerRepo, service.DefaultFeeSchedule(), "stripe")
	inventoryService := service.NewInventoryService(orderRepo, stockRepo)
	fulfillment := service.NewFulfillmentService(
		orderRepo, ledgerService, inventoryService, hub, messaging.NopPublisher{}, "stripe",
	)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	webhook.NewHandler(secret, webhook.NewRouter(fulfillment)).RegisterRoutes(engine)

	// Seed: one product, one pending-payment order for it.
	userID := uuid.New()
	product := &domain.Product{
		ID: uuid.New(), SKU: "MUG-01", Name: "Mug", Stock: 10, Price: 25,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := stockRepo.CreateProduct(ctx, product); err != nil {
		log.Fatalf("seed product: %v", err)
	}

	order := &domain.OrderReview{
		ID: uuid.New(), UserID: userID, Status: domain.OrderPendingPayment,
		Total: 53.75, Subtotal: 50, Shipping: 2.5, Tax: 1.25,
		PaymentIntentID: "pi_sim_1", CreatedAt: time.Now(),
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	items := []domain.OrderItem{{ID: uuid.New(), OrderID: order.ID, ProductID: product.ID, Quantity: 2, Price: 25}}
	if err := orderRepo.CreateOrder(ctx, tx, order, items); err != nil {
		tx.Rollback()
		log.Fatalf("seed order: %v", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}

	body := []byte(fmt.Sprintf(`{
		"id": "evt_sim_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_sim_1",
			"amount_total": 5375,
			"currency": "usd",
			"payment_intent": "pi_sim_1",
			"metadata": {"userId": %q, "orderId": %q, "street": "1 Main St", "city": "Austin", "total": "53.75"}
		}}
	}`, userID, order.ID))

	fmt.Println("--- DELIVERING checkout.session.completed x3 (at-least-once gateway) ---")
	for i := 0; i < 3; i++ {
		status, resp := deliver(engine, body)
		fmt.Printf("[%d] HTTP %d %s\n", i+1, status, resp)
	}

	fmt.Println("--- DELIVERING unknown event type ---")
	status, resp := deliver(engine, []byte(`{"id":"evt_sim_2","type":"invoice.created","data":{"object":{"id":"in_1"}}}`))
	fmt.Printf("    HTTP %d %s\n", status, resp)

	time.Sleep(200 * time.Millisecond)

	fresh, _ := orderRepo.FindById(ctx, order.ID)
	stock, _ := stockRepo.GetStock(ctx, product.ID)
	entry, _ := ledgerRepo.FindByTransactionId(ctx, "stripe-cs_sim_1")
	fmt.Printf("-> order status: %s (number %s)\n", fresh.Status, fresh.OrderNumber)
	fmt.Printf("-> stock: %d (was 10, ordered 2, deducted once)\n", stock)
	if entry != nil {
		fmt.Printf("-> ledger: amount=%.2f fees=%.2f net=%.2f (single entry)\n", entry.Amount, entry.Fees, entry.NetAmount)
	}
}

func deliver(engine *gin.Engine, body []byte) (int, string) {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set(payment.SignatureHeader, payment.SignHeader(secret, time.Now(), body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}
