package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// DynamoAPI is the slice of the DynamoDB client this store uses. Tests
// substitute a stub; production passes *dynamodb.Client.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore is the production backend.
type DynamoStore struct {
	client DynamoAPI
	logger *logrus.Logger
}

// NewDynamoStore wraps an existing DynamoDB client.
func NewDynamoStore(client DynamoAPI, logger *logrus.Logger) *DynamoStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &DynamoStore{client: client, logger: logger}
}

func (s *DynamoStore) Get(ctx context.Context, table string, key Key) (Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            map[string]types.AttributeValue{key.Name: &types.AttributeValueMemberS{Value: key.Value}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, &StoreError{Op: "Get", Table: table, Key: key, Err: err}
	}
	if out.Item == nil {
		return nil, ErrItemNotFound
	}
	return decodeAttrs(out.Item), nil
}

func (s *DynamoStore) Put(ctx context.Context, table string, key Key, item Item) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      encodePutItem(key, item),
	})
	if err != nil {
		return &StoreError{Op: "Put", Table: table, Key: key, Err: err}
	}
	return nil
}

func (s *DynamoStore) PutIfAbsent(ctx context.Context, table string, key Key, item Item) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(table),
		Item:                     encodePutItem(key, item),
		ConditionExpression:      aws.String("attribute_not_exists(#kn)"),
		ExpressionAttributeNames: map[string]string{"#kn": key.Name},
	})
	if err != nil {
		return translateConditional("PutIfAbsent", table, key, err)
	}
	return nil
}

func (s *DynamoStore) Update(ctx context.Context, table string, key Key, attrs map[string]interface{}) (Item, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := "SET "
	i := 0
	for _, k := range sortedAttrKeys(attrs) {
		if i > 0 {
			expr += ", "
		}
		n := fmt.Sprintf("#a%d", i)
		v := fmt.Sprintf(":v%d", i)
		names[n] = k
		values[v] = encodeAttr(attrs[k])
		expr += n + " = " + v
		i++
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       map[string]types.AttributeValue{key.Name: &types.AttributeValueMemberS{Value: key.Value}},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, &StoreError{Op: "Update", Table: table, Key: key, Err: err}
	}
	return decodeAttrs(out.Attributes), nil
}

func (s *DynamoStore) Query(ctx context.Context, table, index, attribute string, value interface{}) ([]Item, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attribute},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": encodeAttr(value)},
	})
	if err != nil {
		return nil, &StoreError{Op: "Query", Table: table, Err: err}
	}
	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		items = append(items, decodeAttrs(raw))
	}
	return items, nil
}

func (s *DynamoStore) AddToSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return s.conditionalUpdate(ctx, "AddToSet", table, key,
		"ADD #attr :val",
		map[string]string{"#attr": attribute},
		map[string]types.AttributeValue{":val": &types.AttributeValueMemberSS{Value: []string{value}}})
}

func (s *DynamoStore) RemoveFromSet(ctx context.Context, table string, key Key, attribute, value string) (Item, error) {
	return s.conditionalUpdate(ctx, "RemoveFromSet", table, key,
		"DELETE #attr :val",
		map[string]string{"#attr": attribute},
		map[string]types.AttributeValue{":val": &types.AttributeValueMemberSS{Value: []string{value}}})
}

func (s *DynamoStore) MoveBetweenSets(ctx context.Context, table string, key Key, source, target, value string) (Item, error) {
	return s.conditionalUpdate(ctx, "MoveBetweenSets", table, key,
		"ADD #tgt :val DELETE #src :val",
		map[string]string{"#src": source, "#tgt": target},
		map[string]types.AttributeValue{":val": &types.AttributeValueMemberSS{Value: []string{value}}})
}

func (s *DynamoStore) AppendToList(ctx context.Context, table string, key Key, attribute string, value interface{}) (Item, error) {
	return s.conditionalUpdate(ctx, "AppendToList", table, key,
		"SET #attr = list_append(if_not_exists(#attr, :empty), :val)",
		map[string]string{"#attr": attribute},
		map[string]types.AttributeValue{
			":val":   &types.AttributeValueMemberL{Value: []types.AttributeValue{encodeAttr(value)}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		})
}

func (s *DynamoStore) MoveBetweenLists(ctx context.Context, table string, key Key, source string, index int, target string, value interface{}) (Item, error) {
	return s.conditionalUpdate(ctx, "MoveBetweenLists", table, key,
		fmt.Sprintf("REMOVE #src[%d] SET #tgt = list_append(if_not_exists(#tgt, :empty), :val)", index),
		map[string]string{"#src": source, "#tgt": target},
		map[string]types.AttributeValue{
			":val":   &types.AttributeValueMemberL{Value: []types.AttributeValue{encodeAttr(value)}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		})
}

// Close is a no-op; the AWS client holds no local resources.
func (s *DynamoStore) Close() error { return nil }

// conditionalUpdate runs an update gated on the item existing with the
// expected key, returning the resulting item.
func (s *DynamoStore) conditionalUpdate(ctx context.Context, op, table string, key Key, expr string, names map[string]string, values map[string]types.AttributeValue) (Item, error) {
	names["#kn"] = key.Name
	values[":kv"] = &types.AttributeValueMemberS{Value: key.Value}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       map[string]types.AttributeValue{key.Name: &types.AttributeValueMemberS{Value: key.Value}},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("#kn = :kv"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, translateConditional(op, table, key, err)
	}
	return decodeAttrs(out.Attributes), nil
}

func translateConditional(op, table string, key Key, err error) error {
	var cond *types.ConditionalCheckFailedException
	if errors.As(err, &cond) {
		return ErrConditionFailed
	}
	return &StoreError{Op: op, Table: table, Key: key, Err: err}
}

func encodePutItem(key Key, item Item) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{
		key.Name: &types.AttributeValueMemberS{Value: key.Value},
	}
	for k, v := range item {
		out[k] = encodeAttr(v)
	}
	return out
}

// encodeAttr maps a Go value onto the wire attribute. StringSet becomes a
// string set; plain slices stay lists.
func encodeAttr(v interface{}) types.AttributeValue {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}
	case string:
		return &types.AttributeValueMemberS{Value: t}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(t)}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(t, 'f', -1, 64)}
	case StringSet:
		return &types.AttributeValueMemberSS{Value: []string(t)}
	case []string:
		vals := make([]types.AttributeValue, 0, len(t))
		for _, e := range t {
			vals = append(vals, &types.AttributeValueMemberS{Value: e})
		}
		return &types.AttributeValueMemberL{Value: vals}
	case []interface{}:
		vals := make([]types.AttributeValue, 0, len(t))
		for _, e := range t {
			vals = append(vals, encodeAttr(e))
		}
		return &types.AttributeValueMemberL{Value: vals}
	case map[string]interface{}:
		vals := make(map[string]types.AttributeValue, len(t))
		for k, e := range t {
			vals[k] = encodeAttr(e)
		}
		return &types.AttributeValueMemberM{Value: vals}
	case Item:
		return encodeAttr(map[string]interface{}(t))
	default:
		return &types.AttributeValueMemberS{Value: fmt.Sprintf("%v", t)}
	}
}

func decodeAttrs(raw map[string]types.AttributeValue) Item {
	item := make(Item, len(raw))
	for k, v := range raw {
		item[k] = decodeAttr(v)
	}
	return item
}

func decodeAttr(v types.AttributeValue) interface{} {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return t.Value
	case *types.AttributeValueMemberBOOL:
		return t.Value
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return t.Value
		}
		return f
	case *types.AttributeValueMemberSS:
		return StringSet(t.Value)
	case *types.AttributeValueMemberL:
		out := make([]interface{}, 0, len(t.Value))
		for _, e := range t.Value {
			out = append(out, decodeAttr(e))
		}
		return out
	case *types.AttributeValueMemberM:
		return map[string]interface{}(decodeAttrs(t.Value))
	case *types.AttributeValueMemberNULL:
		return nil
	default:
		return nil
	}
}

func sortedAttrKeys(attrs map[string]interface{}) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
