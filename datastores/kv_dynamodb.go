package datastores

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of [dynamodb.Client] used by [KVDynamoDB].
type DynamoDBAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// KVDynamoDB implements [KV] on a single DynamoDB table whose partition key
// is a string attribute. It is safe for concurrent use.
type KVDynamoDB struct {
	api      DynamoDBAPI
	table    string
	keyAttr  string
	endpoint string
}

var (
	_ KV     = (*KVDynamoDB)(nil)
	_ Pinger = (*KVDynamoDB)(nil)
)

type DynamoDBOption func(*KVDynamoDB)

// WithAPI replaces the client built from the [aws.Config].
func WithAPI(api DynamoDBAPI) DynamoDBOption {
	return func(s *KVDynamoDB) { s.api = api }
}

// WithKeyAttribute sets the partition key attribute name, "id" by default.
func WithKeyAttribute(name string) DynamoDBOption {
	return func(s *KVDynamoDB) { s.keyAttr = name }
}

// WithEndpoint points the client at a custom endpoint such as DynamoDB Local.
// It has no effect combined with [WithAPI].
func WithEndpoint(url string) DynamoDBOption {
	return func(s *KVDynamoDB) { s.endpoint = url }
}

func NewKVDynamoDB(cfg *aws.Config, table string, opts ...DynamoDBOption) *KVDynamoDB {
	s := &KVDynamoDB{table: table, keyAttr: "id"}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil && cfg != nil {
		s.api = dynamodb.NewFromConfig(*cfg, func(o *dynamodb.Options) {
			if s.endpoint != "" {
				o.BaseEndpoint = aws.String(s.endpoint)
			}
		})
	}
	return s
}

func (s *KVDynamoDB) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{s.keyAttr: &types.AttributeValueMemberS{Value: key}}
}

func (s *KVDynamoDB) Put(ctx context.Context, key string, item Item) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return unavailable("dynamodb: put item", err)
	}
	av[s.keyAttr] = &types.AttributeValueMemberS{Value: key}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return unavailable("dynamodb: put item", err)
	}
	return nil
}

func (s *KVDynamoDB) Get(ctx context.Context, key string) (Item, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, unavailable("dynamodb: get item", err)
	}
	if out.Item == nil {
		return nil, ErrObjectNotFound
	}
	var item Item
	err = attributevalue.UnmarshalMap(out.Item, &item)
	if err != nil {
		return nil, unavailable("dynamodb: get item", err)
	}
	return item, nil
}

func (s *KVDynamoDB) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(key),
	})
	if err != nil {
		return unavailable("dynamodb: delete item", err)
	}
	return nil
}

func (s *KVDynamoDB) Scan(ctx context.Context, skip string) ([]Item, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name(s.keyAttr).NotEqual(expression.Value(skip))).
		Build()
	if err != nil {
		return nil, unavailable("dynamodb: scan", err)
	}

	var items []Item
	pages := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, unavailable("dynamodb: scan", err)
		}
		var batch []Item
		err = attributevalue.UnmarshalListOfMaps(page.Items, &batch)
		if err != nil {
			return nil, unavailable("dynamodb: scan", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (s *KVDynamoDB) Add(ctx context.Context, key, attr string, delta int64) (int64, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Add(expression.Name(attr), expression.Value(delta))).
		Build()
	if err != nil {
		return 0, unavailable("dynamodb: update item", err)
	}

	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, unavailable("dynamodb: update item", err)
	}

	var n int64
	err = attributevalue.Unmarshal(out.Attributes[attr], &n)
	if err != nil {
		return 0, unavailable("dynamodb: update item", err)
	}
	return n, nil
}

// Ping checks that the table is reachable.
func (s *KVDynamoDB) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return unavailable("dynamodb: describe table", err)
	}
	return nil
}
