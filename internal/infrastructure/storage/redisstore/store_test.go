package redisstore

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

func TestRedisKey_SharesSlotPerBranch(t *testing.T) {
	s := New(nil, "")
	company := id.MustParse("0190a4c2-0000-7000-8000-00000000000a")
	branch := id.MustParse("0190a4c2-0000-7000-8000-00000000000b")

	got := s.redisKey(numerator.Key{CompanyID: company, BranchID: branch, DocumentType: numerator.DocExpense})
	assert.Equal(t, "docnum:seq:{0190a4c2-0000-7000-8000-00000000000a:0190a4c2-0000-7000-8000-00000000000b}:expense", got)
}

func TestEncodeDecode(t *testing.T) {
	key := numerator.Key{CompanyID: id.New(), BranchID: id.New(), DocumentType: numerator.DocInvoice}
	cfg := numerator.Config{Prefix: "INV-", Suffix: "/X", CurrentNumber: 17, PaddingZeros: 3, ResetYearly: true, LastFiscalYearLabel: "25-26"}
	created := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)

	// HGETALL hands every field back as a string
	raw := make(map[string]string)
	for k, v := range encode(cfg, 4, created, created) {
		switch x := v.(type) {
		case string:
			raw[k] = x
		case int64:
			raw[k] = strconv.FormatInt(x, 10)
		case int:
			raw[k] = strconv.Itoa(x)
		}
	}

	seq, err := decode(key, raw)
	require.NoError(t, err)
	assert.Equal(t, cfg, seq.Config)
	assert.Equal(t, int64(4), seq.Version)
	assert.True(t, created.Equal(seq.CreatedAt))
}

func TestDecode_CorruptField(t *testing.T) {
	_, err := decode(numerator.Key{}, map[string]string{fieldCurrent: "x"})
	assert.ErrorContains(t, err, "corrupt field current_number")
}
