package dynamodb

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table understanding the conditions this package builds.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return str(item["PK"]) + "|" + str(item["SK"])
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	key := itemKey(in.Item)
	existing, exists := f.items[key]
	cond := aws.ToString(in.ConditionExpression)
	switch {
	case strings.Contains(cond, "attribute_not_exists"):
		if exists {
			expired := false
			if strings.Contains(cond, "<") {
				at, _ := strconv.ParseInt(str(existing["ExpiresAt"]), 10, 64)
				now, _ := strconv.ParseInt(str(in.ExpressionAttributeValues[":0"]), 10, 64)
				expired = at < now
			}
			if !expired {
				return nil, conditionFailed()
			}
		}
	case strings.Contains(cond, "attribute_exists"):
		if !exists {
			return nil, conditionFailed()
		}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := itemKey(in.Key)
	existing, exists := f.items[key]
	if in.ConditionExpression != nil {
		if !exists || str(existing["Owner"]) != str(in.ExpressionAttributeValues[":0"]) {
			return nil, conditionFailed()
		}
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var pk, prefix string
	for _, v := range in.ExpressionAttributeValues {
		s := str(v)
		switch {
		case strings.HasPrefix(s, "PARENT#"):
			pk = s
		case strings.HasPrefix(s, "ENTRY#"):
			prefix = s
		}
	}
	if pk == "" {
		return nil, errors.New("fake: unsupported key condition")
	}

	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if str(item["PK"]) == pk && strings.HasPrefix(str(item["SK"]), prefix) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return str(out[i]["SK"]) < str(out[j]["SK"])
	})
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *fakeAPI) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[key]
	return ok
}
