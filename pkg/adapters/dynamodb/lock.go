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
	"github.com/google/uuid"

	"github.com/aretw0/daybook/pkg/core"
)

// Lock implements core.Locker with conditional writes. A lock item expires
// after TTL so a crashed holder cannot block a namespace forever.
type Lock struct {
	client    API
	tableName string
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// lockRecord represents a lock item.
type lockRecord struct {
	PK         string `dynamodbav:"PK"` // LOCK#<key>
	SK         string `dynamodbav:"SK"` // LOCK
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// NewLock creates a Lock on tableName. A zero ttl defaults to 10 seconds.
func NewLock(client API, tableName string, ttl time.Duration, logger *slog.Logger) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Lock{client: client, tableName: tableName, ttl: ttl, logger: logger, now: time.Now}
}

// errHeld means another owner holds an unexpired lock.
var errHeld = errors.New("lock already held")

// Lock implements core.Locker. It retries with backoff until the key is
// acquired or ctx is done.
func (l *Lock) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	owner := uuid.NewString()
	retry := 50 * time.Millisecond

	for {
		err := l.acquire(ctx, key, owner)
		if err == nil {
			l.logger.Debug("lock acquired", "key", key, "owner", owner)
			return func(ctx context.Context) error {
				return l.release(ctx, key, owner)
			}, nil
		}
		if !errors.Is(err, errHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout acquiring lock %s: %w", key, ctx.Err())
		case <-time.After(retry):
			if retry < time.Second {
				retry = time.Duration(float64(retry) * 1.5)
			}
		}
	}
}

func (l *Lock) acquire(ctx context.Context, key, owner string) error {
	now := l.now()
	expiresAt := now.Add(l.ttl)
	av, err := attributevalue.MarshalMap(lockRecord{
		PK:         "LOCK#" + key,
		SK:         "LOCK",
		Owner:      owner,
		AcquiredAt: now.UTC().Format(time.RFC3339),
		ExpiresAt:  expiresAt.UnixMilli(),
		TTL:        expiresAt.Add(time.Hour).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	cond := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixMilli())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(l.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return errHeld
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (l *Lock) release(ctx context.Context, key, owner string) error {
	cond := expression.Name("Owner").Equal(expression.Value(owner))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "LOCK#" + key},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Expired and taken over by another owner.
			l.logger.Warn("lock already released or owned by someone else", "key", key, "owner", owner)
			return nil
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.logger.Debug("lock released", "key", key, "owner", owner, "ttl", l.ttl)
	return nil
}

var _ core.Locker = (*Lock)(nil)
