package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(now func() time.Time) *Codec {
	return NewCodec(map[Purpose]Key{
		PurposeAccess:  {Secret: []byte("access-secret")},
		PurposeRefresh: {Secret: []byte("refresh-secret")},
		PurposeReset:   {Secret: []byte("reset-secret"), TTL: 5 * time.Minute},
	}, WithClock(now))
}

var alice = Payload{ID: "u-1", Name: "Alice", Email: "alice@example.com"}

func TestMintAndVerify_Success(t *testing.T) {
	t.Parallel()

	c := newTestCodec(time.Now)
	tok, err := c.Mint(PurposeAccess, alice, 0)
	require.NoError(t, err)

	got, ok := c.Verify(PurposeAccess, tok)
	require.True(t, ok)
	assert.Equal(t, alice, got)
}

func TestVerify_CrossPurposeRejected(t *testing.T) {
	t.Parallel()

	c := newTestCodec(time.Now)
	for _, minted := range []Purpose{PurposeAccess, PurposeRefresh, PurposeReset} {
		tok, err := c.Mint(minted, alice, 0)
		require.NoError(t, err)
		for _, checked := range []Purpose{PurposeAccess, PurposeRefresh, PurposeReset} {
			_, ok := c.Verify(checked, tok)
			assert.Equal(t, minted == checked, ok, "minted %s verified as %s", minted, checked)
		}
	}
}

func TestVerify_SameSecretDifferentAudience(t *testing.T) {
	t.Parallel()

	secret := []byte("shared")
	c := NewCodec(map[Purpose]Key{
		PurposeAccess:  {Secret: secret},
		PurposeRefresh: {Secret: secret},
	})
	tok, err := c.Mint(PurposeAccess, alice, 0)
	require.NoError(t, err)

	_, ok := c.Verify(PurposeRefresh, tok)
	assert.False(t, ok)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newTestCodec(func() time.Time { return now })

	tok, err := c.Mint(PurposeReset, alice, 0)
	require.NoError(t, err)

	now = now.Add(4 * time.Minute)
	_, ok := c.Verify(PurposeReset, tok)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Verify(PurposeReset, tok)
	assert.False(t, ok)
}

func TestVerify_MalformedAndWrongSecret(t *testing.T) {
	t.Parallel()

	c := newTestCodec(time.Now)
	for _, tok := range []string{"", "not.a.jwt", "garbage"} {
		_, ok := c.Verify(PurposeAccess, tok)
		assert.False(t, ok, tok)
	}

	other := NewCodec(map[Purpose]Key{PurposeAccess: {Secret: []byte("other")}})
	tok, err := other.Mint(PurposeAccess, alice, 0)
	require.NoError(t, err)
	_, ok := c.Verify(PurposeAccess, tok)
	assert.False(t, ok)
}

func TestVerify_RejectsNoneAndMissingExp(t *testing.T) {
	t.Parallel()

	c := newTestCodec(time.Now)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"access"}},
		UserID:           "u-1",
	})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok := c.Verify(PurposeAccess, s)
	assert.False(t, ok)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"access"}},
		UserID:           "u-1",
	})
	s, err = noExp.SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, ok = c.Verify(PurposeAccess, s)
	assert.False(t, ok)
}

func TestMint_UnknownPurpose(t *testing.T) {
	t.Parallel()

	c := NewCodec(map[Purpose]Key{PurposeAccess: {Secret: []byte("k")}})
	_, err := c.Mint(PurposeReset, alice, 0)
	assert.True(t, errors.Is(err, common.ErrUnknownPurpose))

	_, ok := c.Verify(PurposeReset, "x.y.z")
	assert.False(t, ok)
}

func TestMint_TokensAreUnique(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newTestCodec(func() time.Time { return now })

	a, err := c.Mint(PurposeRefresh, alice, 0)
	require.NoError(t, err)
	b, err := c.Mint(PurposeRefresh, alice, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestExpiryOf(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := newTestCodec(func() time.Time { return now })

	tok, err := c.Mint(PurposeRefresh, alice, 0)
	require.NoError(t, err)

	exp, ok := c.ExpiryOf(tok)
	require.True(t, ok)
	assert.True(t, exp.Equal(now.Add(30*24*time.Hour)))
	assert.Equal(t, 30*24*time.Hour, c.TTL(PurposeRefresh))

	tok, err = c.Mint(PurposeAccess, alice, time.Minute)
	require.NoError(t, err)
	exp, ok = c.ExpiryOf(tok)
	require.True(t, ok)
	assert.True(t, exp.Equal(now.Add(time.Minute)))

	_, ok = c.ExpiryOf("garbage")
	assert.False(t, ok)
}
