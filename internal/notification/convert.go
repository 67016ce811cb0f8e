package notification

import (
	"github.com/aws/aws-lambda-go/events"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/your-org/fileflow/pkg/metastore"
)

// FromDynamoDBEvent converts a Lambda stream trigger payload.
func FromDynamoDBEvent(e events.DynamoDBEvent) []ChangeEvent {
	out := make([]ChangeEvent, 0, len(e.Records))
	for _, rec := range e.Records {
		ev := ChangeEvent{
			Kind:           ChangeKind(rec.EventName),
			EventID:        rec.EventID,
			SequenceNumber: rec.Change.SequenceNumber,
		}
		if img := rec.Change.NewImage; img != nil {
			ev.NewImage = &Image{
				ID:            lambdaString(img, metastore.AttrID),
				FileName:      lambdaString(img, metastore.AttrFileName),
				FileExtension: lambdaString(img, metastore.AttrFileExtension),
				FileSize:      lambdaNumber(img, metastore.AttrFileSize),
				UploadDate:    lambdaString(img, metastore.AttrUploadDate),
			}
		}
		out = append(out, ev)
	}
	return out
}

func lambdaString(img map[string]events.DynamoDBAttributeValue, name string) *string {
	av, ok := img[name]
	if !ok || av.DataType() != events.DataTypeString {
		return nil
	}
	s := av.String()
	return &s
}

func lambdaNumber(img map[string]events.DynamoDBAttributeValue, name string) *string {
	av, ok := img[name]
	if !ok || av.DataType() != events.DataTypeNumber {
		return nil
	}
	n := av.Number()
	return &n
}

// FromStreamRecords converts records read with the DynamoDB Streams API.
func FromStreamRecords(records []streamtypes.Record) []ChangeEvent {
	out := make([]ChangeEvent, 0, len(records))
	for _, rec := range records {
		ev := ChangeEvent{Kind: ChangeKind(rec.EventName)}
		if rec.EventID != nil {
			ev.EventID = *rec.EventID
		}
		if rec.Dynamodb != nil {
			if rec.Dynamodb.SequenceNumber != nil {
				ev.SequenceNumber = *rec.Dynamodb.SequenceNumber
			}
			if img := rec.Dynamodb.NewImage; img != nil {
				ev.NewImage = &Image{
					ID:            streamString(img, metastore.AttrID),
					FileName:      streamString(img, metastore.AttrFileName),
					FileExtension: streamString(img, metastore.AttrFileExtension),
					FileSize:      streamNumber(img, metastore.AttrFileSize),
					UploadDate:    streamString(img, metastore.AttrUploadDate),
				}
			}
		}
		out = append(out, ev)
	}
	return out
}

func streamString(img map[string]streamtypes.AttributeValue, name string) *string {
	if v, ok := img[name].(*streamtypes.AttributeValueMemberS); ok {
		return &v.Value
	}
	return nil
}

func streamNumber(img map[string]streamtypes.AttributeValue, name string) *string {
	if v, ok := img[name].(*streamtypes.AttributeValueMemberN); ok {
		return &v.Value
	}
	return nil
}
