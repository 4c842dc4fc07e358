package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/healthmate-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.PutItemOutput{}, args.Error(0)
}
func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.UpdateItemOutput{}, args.Error(0)
}
func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.DeleteItemOutput{}, args.Error(0)
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(api *mockAPI) *RecordStore {
	return &RecordStore{
		client: api,
		tables: map[string]string{"reminders": "reminders_tbl"},
		now:    func() time.Time { return fixedNow },
	}
}

func strAttr(t *testing.T, item map[string]types.AttributeValue, name string) string {
	t.Helper()
	v, ok := item[name].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is not a string", name)
	return v.Value
}

func TestCreate_UsesRecordIDAndResolvesServerTimestamps(t *testing.T) {
	api := &mockAPI{}
	var put *dynamodb.PutItemInput
	api.On("PutItem", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		put = args.Get(1).(*dynamodb.PutItemInput)
	}).Return(nil)

	id, err := newTestStore(api).Create(context.Background(), "profiles/p1/reminders", map[string]any{
		"record_id":  "r1",
		"created_at": domain.ServerTimestamp,
	})

	require.NoError(t, err)
	assert.Equal(t, "r1", id)
	assert.Equal(t, "reminders_tbl", *put.TableName)
	assert.Equal(t, "p1", strAttr(t, put.Item, "profile_id"))
	assert.Equal(t, "r1", strAttr(t, put.Item, "record_id"))
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), strAttr(t, put.Item, "created_at"))
}

func TestCreate_GeneratesIDWhenMissing(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil)

	id, err := newTestStore(api).Create(context.Background(), "profiles/p1/reminders", map[string]any{"notes": "x"})
	require.NoError(t, err)
	assert.Len(t, id, 26)
}

func TestCreate_UnknownCollection(t *testing.T) {
	_, err := newTestStore(&mockAPI{}).Create(context.Background(), "profiles/p1/doctors", map[string]any{})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdate_MissingRecordMapsToNotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&types.ConditionalCheckFailedException{})

	err := newTestStore(api).Update(context.Background(), "profiles/p1/reminders/r1", map[string]any{"notes": "x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdate_NeverRewritesKeys(t *testing.T) {
	api := &mockAPI{}
	var upd *dynamodb.UpdateItemInput
	api.On("UpdateItem", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		upd = args.Get(1).(*dynamodb.UpdateItemInput)
	}).Return(nil)

	err := newTestStore(api).Update(context.Background(), "profiles/p1/reminders/r1", map[string]any{
		"record_id": "other",
		"notes":     "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", *upd.UpdateExpression)
	assert.Equal(t, "notes", upd.ExpressionAttributeNames["#f0"])
	assert.Equal(t, "r1", strAttr(t, upd.Key, "record_id"))
}

func TestDelete_RequiresRecordPath(t *testing.T) {
	err := newTestStore(&mockAPI{}).Delete(context.Background(), "profiles/p1/reminders")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestParsePath(t *testing.T) {
	p, err := parsePath("profiles/p1/documents/d1")
	require.NoError(t, err)
	assert.Equal(t, recordPath{profileID: "p1", collection: "documents", recordID: "d1"}, p)

	for _, bad := range []string{"", "users/p1/reminders", "profiles//reminders", "profiles/p1/reminders/r1/x"} {
		_, err := parsePath(bad)
		assert.Error(t, err, bad)
	}
}
