package remote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDecoding(t *testing.T) {
	body := `{
		"success": true,
		"result": {
			"tables": {"T1": "T1-real"},
			"columns": {"T1-real": {"C1": "C1-real"}},
			"propagated": {
				"relationshipColumns": [
					{"sourceType": "RELATIONSHIP", "sourceId": "R1", "id": "RC-real", "relationshipId": "R1", "fkColumnId": "FK-real", "refColumnId": "PK", "seqNo": 0}
				]
			}
		}
	}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.True(t, resp.Success)
	assert.Equal(t, "T1-real", resp.Result.Tables["T1"])
	assert.Equal(t, "C1-real", resp.Result.Columns["T1-real"]["C1"])

	require.Len(t, resp.Result.Propagated.RelationshipColumns, 1)
	rc := resp.Result.Propagated.RelationshipColumns[0]
	assert.Equal(t, SourceRelationship, rc.SourceType)
	assert.Equal(t, "R1", rc.SourceID)
	assert.Equal(t, "FK-real", rc.FKColumnID)
	assert.False(t, resp.Result.Propagated.Empty())
}

func TestCall(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		err      error
		wantCode string
		wantErr  bool
	}{
		{
			name: "success",
			resp: &Response{Success: true, Result: &Result{Schemas: map[string]string{"a": "b"}}},
		},
		{
			name: "success without result",
			resp: &Response{Success: true},
		},
		{
			name:     "rejection",
			resp:     &Response{Error: &Error{Code: "CONFLICT", Message: "duplicate name"}},
			wantCode: "CONFLICT",
			wantErr:  true,
		},
		{
			name:     "rejection without error body",
			resp:     &Response{},
			wantCode: "UNKNOWN",
			wantErr:  true,
		},
		{
			name:     "nil response",
			wantCode: "EMPTY_RESPONSE",
			wantErr:  true,
		},
		{
			name:    "transport failure",
			err:     errors.New("connection reset"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AuthorityFunc(func(context.Context, *Request) (*Response, error) {
				return tt.resp, tt.err
			})

			res, err := Call(context.Background(), a, &Request{Kind: "CREATE_TABLE"})
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, res)
				return
			}

			require.Error(t, err)
			var remoteErr *Error
			if tt.wantCode == "" {
				assert.False(t, errors.As(err, &remoteErr))
				return
			}
			require.True(t, errors.As(err, &remoteErr))
			assert.Equal(t, tt.wantCode, remoteErr.Code)
		})
	}
}
