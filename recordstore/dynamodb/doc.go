// Package dynamodb provides a recordstore.RecordStore backed by Amazon DynamoDB.
//
// Each location is a partition. Records of a write are stored under a fresh
// generation and become visible only when the meta item's generation pointer
// is swapped with a conditional write, so readers never observe a partially
// written record set and concurrent writers are detected.
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name nanovdb \
//	  --attribute-definitions AttributeName=pk,AttributeType=S AttributeName=sk,AttributeType=S \
//	  --key-schema AttributeName=pk,KeyType=HASH AttributeName=sk,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb
