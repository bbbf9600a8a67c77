// Package dynamodb implements core.Store and core.Locker on a single
// DynamoDB table with a composite (PK, SK) key.
//
// Item layout:
//
//	PK=PARENT#<parent|ROOT>  SK=ENTRY#<kind>#<name>#<id>   one per container or leaf
//	PK=LEAF#<id>             SK=DATA                       leaf content
//	PK=LOCK#<key>            SK=LOCK                       namespace locks
//
// Listing a parent is a single Query on its partition, so siblings created
// by concurrent resolvers are always seen together once the write is visible.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/aretw0/daybook/pkg/core"
)

// API is the subset of *dynamodb.Client used by this package.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

const rootKey = "ROOT"

// entryItem is a container or leaf listed under its parent.
type entryItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ID        string `dynamodbav:"ID"`
	Name      string `dynamodbav:"Name"`
	Kind      string `dynamodbav:"Kind"`
	ParentID  string `dynamodbav:"ParentID"`
	CreatedAt string `dynamodbav:"CreatedAt"`
}

// dataItem holds the content of a leaf.
type dataItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      []byte `dynamodbav:"Data"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// Store implements core.Store on DynamoDB.
type Store struct {
	client    API
	tableName string
	logger    *slog.Logger
}

// NewStore creates a Store over an existing table.
func NewStore(client API, tableName string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

func parentKey(parent core.ContainerID) string {
	if parent == core.Root {
		return "PARENT#" + rootKey
	}
	return "PARENT#" + string(parent)
}

func sortKey(kind core.Kind, name, id string) string {
	return fmt.Sprintf("ENTRY#%s#%s#%s", kind, name, id)
}

func leafKey(id core.LeafID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "LEAF#" + string(id)},
		"SK": &types.AttributeValueMemberS{Value: "DATA"},
	}
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, f core.Filter) ([]core.Entry, error) {
	matcher, err := core.CompileFilter(f)
	if err != nil {
		return nil, err
	}

	keyCond := expression.Key("PK").Equal(expression.Value(parentKey(f.Parent)))
	prefix := "ENTRY#"
	if f.Kind != "" {
		prefix += string(f.Kind) + "#"
		if f.Name != "" {
			prefix += f.Name + "#"
		}
	}
	keyCond = keyCond.And(expression.KeyBeginsWith(expression.Key("SK"), prefix))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var entries []core.Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.classify("list", err)
		}
		for _, raw := range page.Items {
			var item entryItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("skipping malformed entry", "error", err)
				continue
			}
			e := core.Entry{
				ID:       item.ID,
				Name:     item.Name,
				Kind:     core.Kind(item.Kind),
				ParentID: core.ContainerID(item.ParentID),
			}
			ok, err := matcher.Match(e)
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}

// CreateContainer implements core.Store.
func (s *Store) CreateContainer(ctx context.Context, name string, parent core.ContainerID) (core.ContainerID, error) {
	id := uuid.NewString()
	if err := s.putEntry(ctx, core.KindContainer, name, id, parent); err != nil {
		return "", s.classify("create container", err)
	}
	s.logger.Debug("container created", "id", id, "name", name, "parent", parent)
	return core.ContainerID(id), nil
}

// PutLeaf implements core.Store. New leaves write their content before the
// listing entry, so a listed leaf always has content.
func (s *Store) PutLeaf(ctx context.Context, l core.Leaf) (core.LeafID, error) {
	if l.ID != "" {
		if err := s.putData(ctx, l.ID, l.Data, true); err != nil {
			return "", s.classify("put leaf", err)
		}
		return l.ID, nil
	}

	id := core.LeafID(uuid.NewString())
	if err := s.putData(ctx, id, l.Data, false); err != nil {
		return "", s.classify("put leaf", err)
	}
	if err := s.putEntry(ctx, core.KindLeaf, l.Name, string(id), l.Parent); err != nil {
		return "", s.classify("put leaf", err)
	}
	return id, nil
}

// FetchLeaf implements core.Store.
func (s *Store) FetchLeaf(ctx context.Context, id core.LeafID) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            leafKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.classify("fetch leaf", err)
	}
	if out.Item == nil {
		return nil, core.Unavailable("fetch leaf", fmt.Errorf("leaf %s not found", id))
	}

	var item dataItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaf %s: %w", id, err)
	}
	return item.Data, nil
}

func (s *Store) putEntry(ctx context.Context, kind core.Kind, name, id string, parent core.ContainerID) error {
	item := entryItem{
		PK:        parentKey(parent),
		SK:        sortKey(kind, name, id),
		ID:        id,
		Name:      name,
		Kind:      string(kind),
		ParentID:  string(parent),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	cond := expression.Name("PK").AttributeNotExists()
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// putData writes leaf content. With mustExist the write fails unless the leaf exists.
func (s *Store) putData(ctx context.Context, id core.LeafID, data []byte, mustExist bool) error {
	item := dataItem{
		PK:        "LEAF#" + string(id),
		SK:        "DATA",
		Data:      data,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal leaf: %w", err)
	}

	cond := expression.Name("PK").AttributeNotExists()
	if mustExist {
		cond = expression.Name("PK").AttributeExists()
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// classify converts SDK failures into core.StoreError, keeping the service error code.
func (s *Store) classify(op string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return core.Unavailable(op, fmt.Errorf("conditional check failed: %w", err))
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		s.logger.Debug("dynamodb error", "op", op, "code", ae.ErrorCode(), "fault", ae.ErrorFault().String())
		return core.Unavailable(op, fmt.Errorf("%s: %w", ae.ErrorCode(), err))
	}
	return core.Unavailable(op, err)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "dynamodb-store"
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]string{"table": s.tableName}
}

var _ core.Store = (*Store)(nil)
