package udf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colbridge/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestFnvHash(t *testing.T) {
	tests := []struct {
		name string
		got  *int64
		want int64
	}{
		{name: "empty string", got: FnvHashString(ptr("")), want: 2166136261},
		{name: "string", got: FnvHashString(ptr("abc")), want: -869429227091078805},
		{name: "int32", got: FnvHash(ptr(int32(7))), want: -301181429222878494},
		{name: "int64", got: FnvHash(ptr(int64(7))), want: -7378260590039897598},
		{name: "bool", got: FnvHash(ptr(true)), want: 2062020650953872396},
		{name: "double", got: FnvHash(ptr(1.5)), want: -857323091034700640},
		{
			name: "timestamp",
			got:  FnvHashTimestamp(ptr(time.Date(1970, 1, 2, 0, 0, 1, 0, time.UTC))),
			want: 1483975390925193175,
		},
		{
			name: "decimal narrow",
			got:  FnvHashDecimal(&Decimal{Unscaled: decimal128.FromI64(12345), Precision: 5, Scale: 2}),
			want: -7289666466471294036,
		},
		{
			name: "decimal wide negative",
			got:  FnvHashDecimal(&Decimal{Unscaled: decimal128.FromI64(-1), Precision: 20, Scale: 0}),
			want: -4798041946471415051,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.got)
			assert.Equal(t, tc.want, *tc.got)
		})
	}
}

func TestFnvHash_Nil(t *testing.T) {
	assert.Nil(t, FnvHash[int32](nil))
	assert.Nil(t, FnvHashString(nil))
	assert.Nil(t, FnvHashTimestamp(nil))
	assert.Nil(t, FnvHashDecimal(nil))
}

func TestFnvHash_NamedType(t *testing.T) {
	type userID int64
	assert.Equal(t, *FnvHash(ptr(int64(7))), *FnvHash(ptr(userID(7))))
}

func TestFnvHashTimestamp_UsesUTC(t *testing.T) {
	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("x", 5*3600))
	assert.Equal(t, *FnvHashTimestamp(&utc), *FnvHashTimestamp(&local))
}

func TestDecimalByteSize(t *testing.T) {
	assert.Equal(t, 4, DecimalByteSize(1))
	assert.Equal(t, 4, DecimalByteSize(9))
	assert.Equal(t, 8, DecimalByteSize(10))
	assert.Equal(t, 8, DecimalByteSize(18))
	assert.Equal(t, 16, DecimalByteSize(19))
	assert.Equal(t, 16, DecimalByteSize(38))
}

func TestTypeOf(t *testing.T) {
	dec, err := domain.NewDecimal(10, 2)
	require.NoError(t, err)
	ch, err := domain.NewChar(3)
	require.NoError(t, err)
	vc, err := domain.NewVarchar(40)
	require.NoError(t, err)

	assert.Equal(t, "DECIMAL(10,2)", TypeOf(dec))
	assert.Equal(t, "CHAR(3)", TypeOf(ch))
	assert.Equal(t, "VARCHAR(40)", TypeOf(vc))
	assert.Equal(t, "INT", TypeOf(domain.Scalar(domain.TypeInt)))
	assert.Equal(t, "TIMESTAMP", TypeOf(domain.Scalar(domain.TypeTimestamp)))
}

func TestSessionFunctions(t *testing.T) {
	s := Session{User: "alice", Database: "sales", Pid: 4242, ServerVersion: "colbridge dev"}

	require.NotNil(t, User(s))
	assert.Equal(t, "alice", *User(s))
	assert.Nil(t, EffectiveUser(s))
	assert.Equal(t, "sales", *CurrentDatabase(s))
	assert.Equal(t, int32(4242), *Pid(s))
	assert.Equal(t, "colbridge dev", Version(s))

	s.Pid = -1
	assert.Nil(t, Pid(s))
	assert.Nil(t, CurrentDatabase(Session{}))
}

func TestSleep(t *testing.T) {
	got, err := Sleep(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Sleep(context.Background(), ptr(int32(1)))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, *got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Sleep(ctx, ptr(int32(60_000)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGenerator(nil)
	a, err := g.Next()
	require.NoError(t, err)
	b, err := g.Next()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	g.Close()
	_, err = g.Next()
	require.Error(t, err)
}

func TestUUIDGenerator_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0xAB}, 32)
	a, err := NewUUIDGenerator(bytes.NewReader(seed)).Next()
	require.NoError(t, err)
	b, err := NewUUIDGenerator(bytes.NewReader(seed)).Next()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
