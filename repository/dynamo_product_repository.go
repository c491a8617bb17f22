package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/keshav-const/BTP-sub000/models"
	"github.com/shopspring/decimal"
)

// DynamoAPI is the part of *dynamodb.Client used by the product store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoProductRepository implements ProductRepository on a DynamoDB table
// keyed by product_id.
type DynamoProductRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoProductRepository(client DynamoAPI, table string) *DynamoProductRepository {
	return &DynamoProductRepository{client: client, table: table}
}

type ddbProduct struct {
	ProductID string                `dynamodbav:"product_id"`
	Name      string                `dynamodbav:"name"`
	Price     attributevalue.Number `dynamodbav:"price"`
	Stock     int                   `dynamodbav:"stock"`
	IsActive  bool                  `dynamodbav:"is_active"`
	Image     string                `dynamodbav:"image,omitempty"`
	UpdatedAt string                `dynamodbav:"updated_at,omitempty"`
}

func (d ddbProduct) toModel() (*models.Product, error) {
	price := decimal.Zero
	if d.Price != "" {
		p, err := decimal.NewFromString(d.Price.String())
		if err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", d.ProductID, err)
		}
		price = p
	}
	p := &models.Product{
		ID:       d.ProductID,
		Name:     d.Name,
		Price:    price,
		Stock:    d.Stock,
		IsActive: d.IsActive,
		Image:    d.Image,
	}
	if t, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p, nil
}

func decodeProduct(item map[string]types.AttributeValue) (*models.Product, error) {
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return dp.toModel()
}

func (r *DynamoProductRepository) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: id}}
}

func (r *DynamoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.table,
		Key:            r.key(id),
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return decodeProduct(out.Item)
}

func (r *DynamoProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if _, seen := result[id]; seen {
			continue
		}
		p, err := r.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[id] = p
	}
	return result, nil
}

// DecrementStock uses a condition expression so the availability check and
// the decrement are one write.
func (r *DynamoProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	expr := "SET #stock = #stock - :qty, #updated = :now"
	cond := "attribute_exists(product_id) AND #active = :true AND #stock >= :qty"

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 r.key(id),
		UpdateExpression:    &expr,
		ConditionExpression: &cond,
		ExpressionAttributeNames: map[string]string{
			"#stock":   "stock",
			"#active":  "is_active",
			"#updated": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty":  &types.AttributeValueMemberN{Value: fmt.Sprint(qty)},
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("decrement stock for %s: %w", id, err)
	}
	if len(ccf.Item) == 0 {
		return ErrNotFound
	}
	current, derr := decodeProduct(ccf.Item)
	if derr != nil {
		return derr
	}
	if !current.IsActive {
		return ErrProductInactive
	}
	return ErrInsufficientStock
}

func (r *DynamoProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increment quantity must be positive, got %d", qty)
	}

	expr := "SET #stock = #stock + :qty, #updated = :now"
	cond := "attribute_exists(product_id)"

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 r.key(id),
		UpdateExpression:    &expr,
		ConditionExpression: &cond,
		ExpressionAttributeNames: map[string]string{
			"#stock":   "stock",
			"#updated": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: fmt.Sprint(qty)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("increment stock for %s: %w", id, err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
