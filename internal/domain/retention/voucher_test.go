package retention

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAgent() AgentSnapshot {
	return AgentSnapshot{
		Name:          "Distribuidora La Central C.A.",
		RIF:           "J-12345678-9",
		FiscalAddress: "Av. Libertador, Caracas",
		RetentionRate: d("75"),
	}
}

func testSubject() SubjectSnapshot {
	return SubjectSnapshot{Name: "Suministros Oriente S.R.L.", RIF: "J-98765432-1"}
}

func testItems(t *testing.T, n int) []InvoiceItem {
	t.Helper()
	items := make([]InvoiceItem, 0, n)
	for i := 0; i < n; i++ {
		item, err := NewInvoiceItem(validItemInput())
		require.NoError(t, err)
		items = append(items, *item)
	}
	return items
}

func issueTestVoucher(t *testing.T, correlation int64) *RetentionVoucher {
	t.Helper()
	v, err := NewRetentionVoucher(
		uuid.New(),
		uuid.New(),
		testAgent(),
		testSubject(),
		correlation,
		time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC),
		testItems(t, 2),
	)
	require.NoError(t, err)
	return v
}

func TestNewRetentionVoucher(t *testing.T) {
	t.Run("builds number, period and totals", func(t *testing.T) {
		v := issueTestVoucher(t, 146)

		assert.Equal(t, "20250300000146", v.VoucherNumber)
		assert.Equal(t, int64(146), v.Correlation)
		assert.Equal(t, 2025, v.FiscalYear)
		assert.Equal(t, 3, v.FiscalMonth)
		assert.Equal(t, "Marzo 2025", v.FiscalPeriod)
		assert.True(t, v.TotalPurchase.Equal(d("232.00")))
		assert.True(t, v.TotalTax.Equal(d("32.00")))
		assert.True(t, v.TotalRetained.Equal(d("24.00")))
	})

	t.Run("raises the issued event", func(t *testing.T) {
		v := issueTestVoucher(t, 1)
		events := v.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "RetentionVoucherIssued", events[0].EventType())
	})

	t.Run("requires at least one item", func(t *testing.T) {
		_, err := NewRetentionVoucher(uuid.New(), uuid.New(), testAgent(), testSubject(),
			1, time.Now(), nil)
		assert.Error(t, err)
	})

	t.Run("rejects a non-positive correlation", func(t *testing.T) {
		_, err := NewRetentionVoucher(uuid.New(), uuid.New(), testAgent(), testSubject(),
			0, time.Now(), testItems(t, 1))
		assert.Error(t, err)
	})

	t.Run("requires agent and subject identification", func(t *testing.T) {
		_, err := NewRetentionVoucher(uuid.New(), uuid.New(), AgentSnapshot{}, testSubject(),
			1, time.Now(), testItems(t, 1))
		assert.Error(t, err)

		_, err = NewRetentionVoucher(uuid.New(), uuid.New(), testAgent(), SubjectSnapshot{},
			1, time.Now(), testItems(t, 1))
		assert.Error(t, err)
	})
}

func TestReplaceItems(t *testing.T) {
	t.Run("recomputes totals but never renumbers or redates", func(t *testing.T) {
		v := issueTestVoucher(t, 146)
		number := v.VoucherNumber
		issuedAt := v.IssuedAt
		period := v.FiscalPeriod

		require.NoError(t, v.ReplaceItems(testItems(t, 3)))
		require.NoError(t, v.ReplaceItems(testItems(t, 1)))

		assert.Equal(t, number, v.VoucherNumber)
		assert.Equal(t, issuedAt, v.IssuedAt)
		assert.Equal(t, period, v.FiscalPeriod)
		assert.Equal(t, int64(146), v.Correlation)
		assert.Len(t, v.Items, 1)
		assert.True(t, v.TotalRetained.Equal(d("12.00")))
	})

	t.Run("rejects an empty item list", func(t *testing.T) {
		v := issueTestVoucher(t, 1)
		assert.Error(t, v.ReplaceItems(nil))
	})

	t.Run("bumps the aggregate version", func(t *testing.T) {
		v := issueTestVoucher(t, 1)
		before := v.GetVersion()
		require.NoError(t, v.ReplaceItems(testItems(t, 2)))
		assert.Equal(t, before+1, v.GetVersion())
	})
}

func TestItemListSerialization(t *testing.T) {
	items := ItemList(testItems(t, 2))

	value, err := items.Value()
	require.NoError(t, err)

	var decoded ItemList
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 2)
	assert.Equal(t, items[0].InvoiceNumber, decoded[0].InvoiceNumber)
	assert.True(t, items[0].RetainedAmount.Equal(decoded[0].RetainedAmount))

	// Order must survive the round trip
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	var fromJSON ItemList
	require.NoError(t, json.Unmarshal(raw, &fromJSON))
	assert.Equal(t, len(items), len(fromJSON))
}

func TestItemListScanNil(t *testing.T) {
	var l ItemList
	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)
}
