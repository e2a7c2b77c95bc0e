package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gepe/config"
	"gepe/internal/models"
)

// ResendMailer sends transactional mail through the Resend HTTP API.
// With no API key configured it degrades to a no-op that only logs, so
// local environments work without outbound mail.
type ResendMailer struct {
	apiKey  string
	baseURL string
	from    string
	client  *http.Client
}

func NewResendMailer(cfg config.EmailConfig) *ResendMailer {
	return &ResendMailer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		from:    cfg.From,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) send(ctx context.Context, to []string, subject, html string) error {
	if m.apiKey == "" {
		log.Printf("[EMAIL] no API key configured, skipping %q to %v", subject, to)
		return nil
	}
	body, err := json.Marshal(resendRequest{From: m.from, To: to, Subject: subject, HTML: html})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

func (m *ResendMailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	subject := fmt.Sprintf("Confirmamos tu compra %s", order.OrderNumber)
	return m.send(ctx, []string{order.CustomerEmail}, subject, orderConfirmationHTML(order))
}

func (m *ResendMailer) SendProductionComplete(ctx context.Context, order *models.Order) error {
	subject := fmt.Sprintf("Tu pedido %s esta listo", order.OrderNumber)
	return m.send(ctx, []string{order.CustomerEmail}, subject, productionCompleteHTML(order))
}

func (m *ResendMailer) SendSaleNotification(ctx context.Context, order *models.Order, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Nueva venta %s - $%.2f", order.OrderNumber, order.TotalAmount)
	return m.send(ctx, recipients, subject, saleNotificationHTML(order))
}

// customerDisplayName falls back to the email address: recovered orders
// can lack a payer name.
func customerDisplayName(order *models.Order) string {
	if order.CustomerName != nil && *order.CustomerName != "" {
		return *order.CustomerName
	}
	return order.CustomerEmail
}

func itemRowsHTML(order *models.Order, withPrices bool) string {
	var b strings.Builder
	for _, it := range order.Items {
		size := ""
		if it.ProductSize != nil && *it.ProductSize != "" {
			size = " (Talle " + *it.ProductSize + ")"
		}
		if withPrices {
			fmt.Fprintf(&b, "<li>%dx %s%s - $%.2f</li>", it.Quantity, it.ProductName, size, it.UnitPrice)
		} else {
			fmt.Fprintf(&b, "<li>%dx %s%s</li>", it.Quantity, it.ProductName, size)
		}
	}
	return b.String()
}

func orderConfirmationHTML(order *models.Order) string {
	return fmt.Sprintf(
		"<h2>Gracias por tu compra, %s!</h2>"+
			"<p>Recibimos el pago de tu pedido <strong>%s</strong>.</p>"+
			"<ul>%s</ul>"+
			"<p>Total: <strong>$%.2f</strong></p>"+
			"<p>Te avisaremos cuando este listo para el envio.</p>",
		customerDisplayName(order), order.OrderNumber, itemRowsHTML(order, true), order.TotalAmount,
	)
}

func productionCompleteHTML(order *models.Order) string {
	return fmt.Sprintf(
		"<h2>Tu pedido %s esta terminado</h2>"+
			"<p>Ya salio de produccion y pronto va a ser despachado.</p>"+
			"<ul>%s</ul>",
		order.OrderNumber, itemRowsHTML(order, false),
	)
}

func saleNotificationHTML(order *models.Order) string {
	return fmt.Sprintf(
		"<h2>Nueva venta</h2>"+
			"<p>Pedido <strong>%s</strong> de %s (%s), creado %s.</p>"+
			"<ul>%s</ul>"+
			"<p>Total: <strong>$%.2f</strong></p>",
		order.OrderNumber, customerDisplayName(order), order.CustomerEmail,
		order.CreatedAt.Format(time.RFC822), itemRowsHTML(order, true), order.TotalAmount,
	)
}
