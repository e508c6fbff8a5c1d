package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// Metrics provides basic in-memory counters for the billing surface.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	commandCount   map[string]int64
	paymentsTotal  map[domain.PaymentType]int64
	paymentsAmount map[domain.PaymentType]int64
	refundRequests int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		commandCount:   make(map[string]int64),
		paymentsTotal:  make(map[domain.PaymentType]int64),
		paymentsAmount: make(map[domain.PaymentType]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordCommand counts aggregate commands by name and outcome.
func (m *Metrics) RecordCommand(command string, accepted bool) {
	if m == nil {
		return
	}
	key := command + "|" + strconv.FormatBool(accepted)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCount[key]++
}

// RecordPayment tracks accepted payments and their amounts.
func (m *Metrics) RecordPayment(paymentType domain.PaymentType, amount domain.Money) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentsTotal[paymentType]++
	m.paymentsAmount[paymentType] += int64(amount)
}

// RecordRefundRequest counts refund requests created.
func (m *Metrics) RecordRefundRequest() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refundRequests++
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
