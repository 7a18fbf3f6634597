package dynamo

// Tests use a hand-rolled fake client; testify mocks do not sit well with
// the SDK's variadic option parameters.

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/edgestow"
)

type fakeClient struct {
	items map[string]map[string]types.AttributeValue
	err   error

	lastTable string
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(key map[string]types.AttributeValue) string {
	member, ok := key["key"].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return member.Value
}

func (f *fakeClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastTable = *params.TableName
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(params.Key)]}, nil
}

func (f *fakeClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastTable = *params.TableName
	f.items[itemKey(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastTable = *params.TableName
	delete(f.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func freshEntry(key string) *edgestow.CachedEntry {
	return &edgestow.CachedEntry{
		Key:        key,
		Status:     200,
		Headers:    map[string]string{"Content-Type": "font/woff2"},
		Body:       []byte("woff2 bytes"),
		StoredAt:   time.Now().Unix(),
		TTLSeconds: 3600,
	}
}

func TestNewRequiresTable(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "table is required")
}

func TestSetGetRoundTrip(t *testing.T) {
	client := newFakeClient()
	store := newStoreWithAPI(client, "edge-cache")
	ctx := context.Background()

	entry := freshEntry("v1|/fonts/inter.woff2|")
	require.NoError(t, store.Set(ctx, entry))
	assert.Equal(t, "edge-cache", client.lastTable)

	got, err := store.Get(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, entry.Status, got.Status)
	assert.Equal(t, entry.Headers, got.Headers)
	assert.Equal(t, entry.Body, got.Body)
	assert.Equal(t, entry.StoredAt, got.StoredAt)
}

func TestSetWritesNativeTTLAttribute(t *testing.T) {
	client := newFakeClient()
	store := newStoreWithAPI(client, "edge-cache")

	entry := freshEntry("k")
	require.NoError(t, store.Set(context.Background(), entry))

	item := client.items["k"]
	require.NotNil(t, item)
	assert.Equal(t, int64(3600), numberAttr(t, item, "expires_at")-numberAttr(t, item, "stored_at"))
}

func numberAttr(t *testing.T, item map[string]types.AttributeValue, name string) int64 {
	t.Helper()
	member, ok := item[name].(*types.AttributeValueMemberN)
	require.True(t, ok, "%s should be a number attribute", name)

	v, err := strconv.ParseInt(member.Value, 10, 64)
	require.NoError(t, err)
	return v
}

func TestGetUnknownKey(t *testing.T) {
	store := newStoreWithAPI(newFakeClient(), "edge-cache")

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, edgestow.ErrNotFound)
}

func TestExpiredEntryIsDropped(t *testing.T) {
	client := newFakeClient()
	store := newStoreWithAPI(client, "edge-cache")
	ctx := context.Background()

	entry := freshEntry("old")
	entry.StoredAt = time.Now().Add(-2 * time.Hour).Unix()
	require.NoError(t, store.Set(ctx, entry))

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, edgestow.ErrExpired)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, edgestow.ErrNotFound, "expired read deletes the item")
}

func TestLastWriteWins(t *testing.T) {
	store := newStoreWithAPI(newFakeClient(), "edge-cache")
	ctx := context.Background()

	first := freshEntry("k")
	first.Body = []byte("first")
	second := freshEntry("k")
	second.Body = []byte("second")

	require.NoError(t, store.Set(ctx, first))
	require.NoError(t, store.Set(ctx, second))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got.Body)
}

func TestDeleteAbsentKey(t *testing.T) {
	store := newStoreWithAPI(newFakeClient(), "edge-cache")

	assert.NoError(t, store.Delete(context.Background(), "missing"))
}

func TestClientErrorsSurface(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("throttled")
	store := newStoreWithAPI(client, "edge-cache")
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	assert.ErrorContains(t, err, "throttled")

	err = store.Set(ctx, freshEntry("k"))
	assert.ErrorContains(t, err, "throttled")

	err = store.Delete(ctx, "k")
	assert.ErrorContains(t, err, "throttled")
}
