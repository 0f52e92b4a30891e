package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/config"
	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
)

const (
	DefaultStationsTable = "charging-stations"
	dynamoBackend        = "dynamodb"
	maxDynamoBatchSize   = 25
)

// DynamoStationStore persists stations as one item per ext_id. Writes are
// full-item PutRequests, so a repeated upsert replaces every attribute.
type DynamoStationStore struct {
	client    DynamoDBClient
	tableName string
	config    *config.CacheConfig
	sleep     func(time.Duration)
}

var _ models.StationRepository = (*DynamoStationStore)(nil)

func NewDynamoStationStore(client DynamoDBClient, tableName string, cacheConfig *config.CacheConfig) *DynamoStationStore {
	if cacheConfig == nil {
		cacheConfig = config.GetCacheConfig()
	}
	if tableName == "" {
		tableName = DefaultStationsTable
	}
	return &DynamoStationStore{
		client:    client,
		tableName: tableName,
		config:    cacheConfig,
		sleep:     time.Sleep,
	}
}

func (s *DynamoStationStore) Upsert(ctx context.Context, stations []models.Station) error {
	// BatchWriteItem rejects two requests for the same key, the last one wins.
	order := make([]string, 0, len(stations))
	latest := make(map[string]models.Station, len(stations))
	for _, st := range stations {
		if _, seen := latest[st.ExtID]; !seen {
			order = append(order, st.ExtID)
		}
		latest[st.ExtID] = st
	}

	batchSize := s.config.BatchSize
	if batchSize <= 0 || batchSize > maxDynamoBatchSize {
		batchSize = maxDynamoBatchSize
	}

	for i := 0; i < len(order); i += batchSize {
		end := i + batchSize
		if end > len(order) {
			end = len(order)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, id := range order[i:end] {
			item, err := attributevalue.MarshalMap(latest[id])
			if err != nil {
				return NewPersistenceError(dynamoBackend, fmt.Errorf("marshaling station %s: %w", id, err))
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := s.writeBatch(ctx, writeRequests); err != nil {
			return NewPersistenceError(dynamoBackend, err)
		}
	}

	log.Debug().Int("count", len(order)).Str("table", s.tableName).Msg("Upserted stations to DynamoDB")
	return nil
}

// writeBatch retries failed calls and unprocessed items with exponential backoff.
func (s *DynamoStationStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	maxRetries := s.config.MaxBatchRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	pending := requests
	var lastErr error
	for retry := 0; retry < maxRetries && len(pending) > 0; retry++ {
		if retry > 0 {
			s.sleep(time.Duration(1<<(retry-1)) * 100 * time.Millisecond)
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: pending,
			},
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		lastErr = nil
		if out == nil {
			pending = nil
			break
		}
		pending = out.UnprocessedItems[s.tableName]
	}

	if lastErr != nil {
		return fmt.Errorf("batch writing stations after %d retries: %w", maxRetries, lastErr)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d stations left unprocessed after %d retries", len(pending), maxRetries)
	}
	return nil
}

func (s *DynamoStationStore) ListWithin(ctx context.Context, box geo.BoundingBox) ([]models.Station, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("latitude BETWEEN :minLat AND :maxLat AND longitude BETWEEN :minLon AND :maxLon"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":minLat": numberValue(box.MinLat),
			":maxLat": numberValue(box.MaxLat),
			":minLon": numberValue(box.MinLon),
			":maxLon": numberValue(box.MaxLon),
		},
	}

	var stations []models.Station
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, NewPersistenceError(dynamoBackend, fmt.Errorf("scanning stations: %w", err))
		}

		var page []models.Station
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, NewPersistenceError(dynamoBackend, fmt.Errorf("unmarshaling stations: %w", err))
		}
		stations = append(stations, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return stations, nil
}

func numberValue(f float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: formatNumber(f)}
}
