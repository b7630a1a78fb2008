package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/cart"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

const defaultRecipient = "player"

type ReceiptHandler struct {
	emailServiceURL   string
	libraryServiceURL string
	httpClient        *http.Client
	logger            *slog.Logger
}

func NewReceiptHandler(emailServiceURL, libraryServiceURL string, client *http.Client, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		emailServiceURL:   emailServiceURL,
		libraryServiceURL: libraryServiceURL,
		httpClient:        client,
		logger:            logger,
	}
}

// Handle records the purchased receipt in the library and mails it. Any
// error leaves the message uncommitted so it is delivered again; recording
// is idempotent on the receipt ID.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.PurchaseCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal purchase completed event: %w", err)
	}

	receipt := event.Receipt
	h.logger.Info("processing purchase completed event", "receipt_id", receipt.ID, "total", receipt.Total)

	if err := h.recordReceipt(ctx, receipt); err != nil {
		h.logger.Error("failed to record receipt", "error", err, "receipt_id", receipt.ID)
		return fmt.Errorf("record receipt: %w", err)
	}

	if err := h.sendReceiptEmail(ctx, receipt); err != nil {
		h.logger.Error("failed to send receipt email", "error", err, "receipt_id", receipt.ID)
		return fmt.Errorf("send receipt email: %w", err)
	}

	h.logger.Info("purchase processing complete", "receipt_id", receipt.ID)
	return nil
}

func (h *ReceiptHandler) recordReceipt(ctx context.Context, receipt domain.Receipt) error {
	resp, err := h.postJSON(ctx, h.libraryServiceURL+"/receipts", receipt)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("library service returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *ReceiptHandler) sendReceiptEmail(ctx context.Context, receipt domain.Receipt) error {
	to := receipt.Recipient
	if to == "" {
		to = defaultRecipient
	}

	body := map[string]string{
		"to":      to,
		"subject": "Receipt: " + receipt.ID,
		"body":    ReceiptBody(receipt),
	}

	resp, err := h.postJSON(ctx, h.emailServiceURL+"/send", body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
	return nil
}

// ReceiptBody renders receipt as plain text with Rupiah amounts.
func ReceiptBody(receipt domain.Receipt) string {
	var b strings.Builder
	if receipt.Recipient != "" {
		fmt.Fprintf(&b, "Gift for %s\n", receipt.Recipient)
	}
	for _, l := range receipt.Lines {
		fmt.Fprintf(&b, "%s x%d  %s\n", l.Title, l.Quantity, cart.FormatRupiah(l.Subtotal))
	}
	if receipt.Discount > 0 {
		fmt.Fprintf(&b, "Discount: -%s\n", cart.FormatRupiah(receipt.Discount))
	}
	fmt.Fprintf(&b, "Total: %s\n", cart.FormatRupiah(receipt.Total))
	fmt.Fprintf(&b, "Remaining balance: %s\n", cart.FormatRupiah(receipt.BalanceAfter))
	return b.String()
}

func (h *ReceiptHandler) postJSON(ctx context.Context, url string, v any) (*http.Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return h.httpClient.Do(req)
}
