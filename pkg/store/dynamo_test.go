package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeDynamo struct {
	getOut  *dynamodb.GetItemOutput
	getErr  error
	putIn   *dynamodb.PutItemInput
	putErr  error
	updIn   *dynamodb.UpdateItemInput
	updOut  *dynamodb.UpdateItemOutput
	updErr  error
	queryIn *dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putIn = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updIn = params
	if f.updErr != nil {
		return nil, f.updErr
	}
	if f.updOut == nil {
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{}}, nil
	}
	return f.updOut, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryIn = params
	return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"saga": &types.AttributeValueMemberS{Value: "a"}},
	}}, nil
}

func TestDynamoStore_GetNotFound(t *testing.T) {
	st := NewDynamoStore(&fakeDynamo{}, nil)
	_, err := st.Get(context.Background(), "t", key("a"))
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestDynamoStore_GetDecodes(t *testing.T) {
	client := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"saga":          &types.AttributeValueMemberS{Value: "a"},
		"current_state": &types.AttributeValueMemberS{Value: "placed"},
		"history":       &types.AttributeValueMemberSS{Value: []string{"t1|init"}},
		"retries":       &types.AttributeValueMemberN{Value: "3"},
	}}}
	st := NewDynamoStore(client, nil)

	item, err := st.Get(context.Background(), "t", key("a"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item["current_state"] != "placed" {
		t.Errorf("current_state = %v", item["current_state"])
	}
	if set, ok := item["history"].(StringSet); !ok || !set.Contains("t1|init") {
		t.Errorf("history = %#v", item["history"])
	}
	if item["retries"] != float64(3) {
		t.Errorf("retries = %#v", item["retries"])
	}
}

func TestDynamoStore_PutIfAbsent(t *testing.T) {
	client := &fakeDynamo{}
	st := NewDynamoStore(client, nil)

	err := st.PutIfAbsent(context.Background(), "t", key("a"), Item{"current_state": "placed"})
	if err != nil {
		t.Fatalf("PutIfAbsent() error = %v", err)
	}
	if *client.putIn.ConditionExpression != "attribute_not_exists(#kn)" {
		t.Errorf("condition = %s", *client.putIn.ConditionExpression)
	}
	if client.putIn.ExpressionAttributeNames["#kn"] != "saga" {
		t.Errorf("names = %v", client.putIn.ExpressionAttributeNames)
	}
}

func TestDynamoStore_ConditionalCheckTranslates(t *testing.T) {
	client := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	st := NewDynamoStore(client, nil)

	err := st.PutIfAbsent(context.Background(), "t", key("a"), Item{})
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("err = %v, want ErrConditionFailed", err)
	}

	client = &fakeDynamo{updErr: &types.ConditionalCheckFailedException{}}
	st = NewDynamoStore(client, nil)
	if _, err := st.AddToSet(context.Background(), "t", key("a"), "history", "x"); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("AddToSet err = %v, want ErrConditionFailed", err)
	}
}

func TestDynamoStore_OtherErrorsWrapStoreError(t *testing.T) {
	client := &fakeDynamo{putErr: errors.New("throughput exceeded")}
	st := NewDynamoStore(client, nil)

	err := st.PutIfAbsent(context.Background(), "t", key("a"), Item{})
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StoreError", err)
	}
	if se.Op != "PutIfAbsent" || se.Table != "t" {
		t.Errorf("StoreError = %+v", se)
	}
}

func TestDynamoStore_UpdateExpression(t *testing.T) {
	client := &fakeDynamo{}
	st := NewDynamoStore(client, nil)

	_, err := st.Update(context.Background(), "t", key("a"), map[string]interface{}{
		"current_state": "paid",
		"attempts":      2,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	// Attribute keys are sorted, so placeholder numbering is stable.
	if *client.updIn.UpdateExpression != "SET #a0 = :v0, #a1 = :v1" {
		t.Errorf("expression = %s", *client.updIn.UpdateExpression)
	}
	if client.updIn.ExpressionAttributeNames["#a0"] != "attempts" {
		t.Errorf("names = %v", client.updIn.ExpressionAttributeNames)
	}
	if client.updIn.ReturnValues != types.ReturnValueAllNew {
		t.Errorf("return values = %v", client.updIn.ReturnValues)
	}
}

func TestDynamoStore_SetOpExpressions(t *testing.T) {
	tests := []struct {
		name     string
		call     func(st *DynamoStore) error
		wantExpr string
	}{
		{
			name: "add to set",
			call: func(st *DynamoStore) error {
				_, err := st.AddToSet(context.Background(), "t", key("a"), "history", "x")
				return err
			},
			wantExpr: "ADD #attr :val",
		},
		{
			name: "remove from set",
			call: func(st *DynamoStore) error {
				_, err := st.RemoveFromSet(context.Background(), "t", key("a"), "history", "x")
				return err
			},
			wantExpr: "DELETE #attr :val",
		},
		{
			name: "move between sets",
			call: func(st *DynamoStore) error {
				_, err := st.MoveBetweenSets(context.Background(), "t", key("a"), "open", "done", "x")
				return err
			},
			wantExpr: "ADD #tgt :val DELETE #src :val",
		},
		{
			name: "append to list",
			call: func(st *DynamoStore) error {
				_, err := st.AppendToList(context.Background(), "t", key("a"), "queue", "x")
				return err
			},
			wantExpr: "SET #attr = list_append(if_not_exists(#attr, :empty), :val)",
		},
		{
			name: "move between lists",
			call: func(st *DynamoStore) error {
				_, err := st.MoveBetweenLists(context.Background(), "t", key("a"), "queue", 1, "done", "x")
				return err
			},
			wantExpr: "REMOVE #src[1] SET #tgt = list_append(if_not_exists(#tgt, :empty), :val)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeDynamo{}
			st := NewDynamoStore(client, nil)
			if err := tt.call(st); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if *client.updIn.UpdateExpression != tt.wantExpr {
				t.Errorf("expression = %s, want %s", *client.updIn.UpdateExpression, tt.wantExpr)
			}
			if *client.updIn.ConditionExpression != "#kn = :kv" {
				t.Errorf("condition = %s", *client.updIn.ConditionExpression)
			}
		})
	}
}

func TestDynamoStore_QueryInput(t *testing.T) {
	client := &fakeDynamo{}
	st := NewDynamoStore(client, nil)

	items, err := st.Query(context.Background(), "t", "by-state", "current_state", "placed")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(items) != 1 || items[0]["saga"] != "a" {
		t.Errorf("items = %v", items)
	}
	if *client.queryIn.IndexName != "by-state" {
		t.Errorf("index = %s", *client.queryIn.IndexName)
	}
	if client.queryIn.ExpressionAttributeNames["#a"] != "current_state" {
		t.Errorf("names = %v", client.queryIn.ExpressionAttributeNames)
	}
}

func TestEncodeAttrRoundTrip(t *testing.T) {
	in := Item{
		"s":    "text",
		"b":    true,
		"n":    float64(7),
		"set":  StringSet{"a", "b"},
		"list": []interface{}{"x", float64(1)},
		"m":    map[string]interface{}{"k": "v"},
	}
	got := decodeAttrs(encodePutItem(Key{Name: "saga", Value: "id"}, in))

	if got["saga"] != "id" {
		t.Errorf("key = %v", got["saga"])
	}
	if got["s"] != "text" || got["b"] != true || got["n"] != float64(7) {
		t.Errorf("scalars = %v", got)
	}
	if set := got["set"].(StringSet); !set.Contains("a") || !set.Contains("b") {
		t.Errorf("set = %v", set)
	}
	if list := got["list"].([]interface{}); list[0] != "x" || list[1] != float64(1) {
		t.Errorf("list = %v", list)
	}
	if m := got["m"].(map[string]interface{}); m["k"] != "v" {
		t.Errorf("map = %v", m)
	}
}
