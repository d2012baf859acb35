package datastores

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB keeps a single table in memory. It understands the
// expressions built by [KVDynamoDB] only.
type fakeDynamoDB struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	err      error
	gets     []*dynamodb.GetItemInput
	scans    []*dynamodb.ScanInput
}

var _ DynamoDBAPI = (*fakeDynamoDB)(nil)

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]map[string]types.AttributeValue), pageSize: 100}
}

func keyOf(av map[string]types.AttributeValue) string {
	return av["id"].(*types.AttributeValueMemberS).Value //nolint: errcheck // test
}

func single[K comparable, V any](m map[K]V) V {
	for _, v := range m {
		return v
	}
	panic("empty map")
}

func (f *fakeDynamoDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[keyOf(in.Item)] = maps.Clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: maps.Clone(f.items[keyOf(in.Key)])}, nil
}

func (f *fakeDynamoDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamoDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	attr := single(in.ExpressionAttributeNames)
	delta, err := strconv.ParseInt(single(in.ExpressionAttributeValues).(*types.AttributeValueMemberN).Value, 10, 64) //nolint: errcheck,forcetypeassert // test
	if err != nil {
		return nil, err
	}

	key := keyOf(in.Key)
	item, ok := f.items[key]
	if !ok {
		item = maps.Clone(in.Key)
		f.items[key] = item
	}
	var n int64
	if v, ok := item[attr].(*types.AttributeValueMemberN); ok {
		n, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	n += delta
	item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}

	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{attr: item[attr]}}, nil
}

func (f *fakeDynamoDB) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	if f.err != nil {
		return nil, f.err
	}
	skip := single(in.ExpressionAttributeValues).(*types.AttributeValueMemberS).Value //nolint: errcheck // test

	keys := slices.Sorted(maps.Keys(f.items))
	start := 0
	if in.ExclusiveStartKey != nil {
		start, _ = slices.BinarySearch(keys, keyOf(in.ExclusiveStartKey))
		start++
	}
	end := min(start+f.pageSize, len(keys))

	out := &dynamodb.ScanOutput{}
	for _, key := range keys[start:end] {
		if key != skip {
			out.Items = append(out.Items, maps.Clone(f.items[key]))
		}
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: keys[end-1]}}
	}
	return out, nil
}

func (f *fakeDynamoDB) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func TestKVDynamoDB_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	kv := NewKVDynamoDB(nil, "ContactsTable", WithAPI(api))

	require.NoError(t, kv.Put(ctx, "1", Item{"name": "Ann", "phone": "555"}))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "1"}, api.items["1"]["id"])

	item, err := kv.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, Item{"id": "1", "name": "Ann", "phone": "555"}, item)
	require.Len(t, api.gets, 1)
	assert.Equal(t, "ContactsTable", aws.ToString(api.gets[0].TableName))
	assert.True(t, aws.ToBool(api.gets[0].ConsistentRead))

	require.NoError(t, kv.Delete(ctx, "1"))
	_, err = kv.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, kv.Delete(ctx, "1"))
}

func TestKVDynamoDB_Add(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	kv := NewKVDynamoDB(nil, "ContactsTable", WithAPI(api))

	for want := int64(1); want <= 3; want++ {
		n, err := kv.Add(ctx, CounterKey, "value", 1)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, api.items[CounterKey]["value"])
}

func TestKVDynamoDB_ScanPaginatesAndSkips(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	api.pageSize = 2
	kv := NewKVDynamoDB(nil, "ContactsTable", WithAPI(api))

	for i := 1; i <= 5; i++ {
		id := strconv.Itoa(i)
		require.NoError(t, kv.Put(ctx, id, Item{"name": "n" + id}))
	}
	_, err := kv.Add(ctx, CounterKey, "value", 5)
	require.NoError(t, err)

	items, err := kv.Scan(ctx, CounterKey)
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item["id"])
	}
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5"}, ids)

	require.Len(t, api.scans, 3)
	scan := api.scans[0]
	require.NotNil(t, scan.FilterExpression)
	assert.Contains(t, *scan.FilterExpression, "<>")
	assert.Equal(t, []string{"id"}, slices.Collect(maps.Values(scan.ExpressionAttributeNames)))
}

func TestKVDynamoDB_Unavailable(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	api.err = errors.New("ProvisionedThroughputExceededException")
	kv := NewKVDynamoDB(nil, "ContactsTable", WithAPI(api))

	err := kv.Put(ctx, "1", Item{})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.EqualError(t, err, "dynamodb: put item: ProvisionedThroughputExceededException")

	_, err = kv.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	err = kv.Delete(ctx, "1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = kv.Scan(ctx, CounterKey)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = kv.Add(ctx, CounterKey, "value", 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	err = kv.Ping(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	var unavailableErr *UnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, "dynamodb: describe table", unavailableErr.Op)
}

func TestKVDynamoDB_Ping(t *testing.T) {
	kv := NewKVDynamoDB(nil, "ContactsTable", WithAPI(newFakeDynamoDB()))
	assert.NoError(t, kv.Ping(context.Background()))
}

func TestKVDynamoDB_ContactsScenario(t *testing.T) {
	ctx := context.Background()
	store := NewContactsKV(NewKVDynamoDB(nil, "ContactsTable", WithAPI(newFakeDynamoDB())))

	id, err := store.Create(ctx, &Contact{Name: "Ann", Phone: "555", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	id, err = store.Create(ctx, &Contact{Name: "Bo", Phone: "222", Email: "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "2", id)

	require.NoError(t, store.Delete(ctx, "1"))
	_, err = store.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	contacts, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*Contact{{ID: "2", Name: "Bo", Phone: "222", Email: "b@x.com"}}, contacts)
}
