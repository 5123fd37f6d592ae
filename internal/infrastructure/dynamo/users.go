package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the newest user with the given email regardless of
// activation state. The email GSI is queried in descending key order so a
// re-registration over a stale unconfirmed account resolves to the latest
// record.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := r.queryByEmail(ctx, email, 1, nil)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrUserNotFound)
	}
	return &users[0], nil
}

// GetActiveByEmail returns the user with the given email and is_active=true.
//
// Limit applies before FilterExpression, so this reads only the newest record
// for the email and filters that one. It is correct because an active email
// is never shadowed: Register rejects any email that already has an active
// record, so whenever an active record exists it is the newest one.
func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	filter := aws.String("is_active = :t")
	users, err := r.queryByEmail(ctx, email, 1, filter)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("active user %s: %w", email, domain.ErrUserNotFound)
	}
	return &users[0], nil
}

// ExistsActiveByEmail reports whether an active user holds the given email.
func (r *UserRepo) ExistsActiveByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetActiveByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Update applies a partial update to a single user record. All core
// invariants are single-row, so this is the only mutation primitive needed.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound)
}

func (r *UserRepo) queryByEmail(ctx context.Context, email string, limit int32, filter *string) ([]domain.User, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	}
	if filter != nil {
		input.FilterExpression = filter
		input.ExpressionAttributeValues[":t"] = &types.AttributeValueMemberBOOL{Value: true}
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var users []domain.User
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &users); err != nil {
		return nil, err
	}
	return users, nil
}
