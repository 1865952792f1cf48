// Package server exposes the store over the DynamoDB HTTP wire protocol:
// every operation is a POST to "/" with an X-Amz-Target header naming the
// operation and an application/x-amz-json-1.0 body. SDK clients pointed at
// the listen address with a custom endpoint talk to it unchanged.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dynalocal/ddberrors"
	"dynalocal/ddbiface"
)

const targetPrefix = "DynamoDB_20120810."

// Server serves the DynamoDB JSON protocol on top of a store. Anything
// satisfying ddbiface.DynamoDB works, so tests can substitute their own.
type Server struct {
	store  ddbiface.DynamoDB
	router *mux.Router
}

// New wires a Server around the given store.
func New(store ddbiface.DynamoDB) *Server {
	s := &Server{
		store:  store,
		router: mux.NewRouter(),
	}
	s.router.HandleFunc("/", s.handleRequest).Methods(http.MethodPost)
	return s
}

// Router returns the underlying mux router.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.Header().Set("x-amzn-RequestId", uuid.NewString())

	op, ok := strings.CutPrefix(r.Header.Get("X-Amz-Target"), targetPrefix)
	if !ok {
		writeError(w, &ddberrors.APIError{
			Code:    "UnknownOperationException",
			Message: "The request is for an operation that is not recognized.",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, &ddberrors.APIError{
			Code:    "SerializationException",
			Message: "Unable to read the request body.",
		})
		return
	}

	resp, err := s.dispatch(r.Context(), op, body)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode %s response: %v", op, err)
	}
}

func (s *Server) dispatch(ctx context.Context, op string, body []byte) (any, error) {
	switch op {
	case "CreateTable":
		return s.createTable(ctx, body)
	case "UpdateTable":
		return s.updateTable(ctx, body)
	case "DescribeTable":
		return s.describeTable(ctx, body)
	case "DeleteTable":
		return s.deleteTable(ctx, body)
	case "ListTables":
		return s.listTables(ctx, body)
	case "PutItem":
		return s.putItem(ctx, body)
	case "GetItem":
		return s.getItem(ctx, body)
	case "UpdateItem":
		return s.updateItem(ctx, body)
	case "DeleteItem":
		return s.deleteItem(ctx, body)
	case "Query":
		return s.query(ctx, body)
	case "Scan":
		return s.scan(ctx, body)
	default:
		return nil, &ddberrors.APIError{
			Code:    "UnknownOperationException",
			Message: "The request is for an operation that is not recognized.",
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := ddberrors.CodeOf(err)
	status := http.StatusBadRequest
	if code == "" {
		code = "InternalFailure"
		status = http.StatusInternalServerError
	}
	message := err.Error()
	var api smithy.APIError
	if errors.As(err, &api) {
		message = api.ErrorMessage()
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"__type":  "com.amazonaws.dynamodb.v20120810#" + code,
		"message": message,
	})
}

func decodeBody(body []byte, req any) error {
	if err := json.Unmarshal(body, req); err != nil {
		return &ddberrors.APIError{
			Code:    "SerializationException",
			Message: err.Error(),
		}
	}
	return nil
}

func (s *Server) createTable(ctx context.Context, body []byte) (any, error) {
	var input dynamodb.CreateTableInput
	if err := decodeBody(body, &input); err != nil {
		return nil, err
	}
	out, err := s.store.CreateTable(ctx, &input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"TableDescription": out.TableDescription}, nil
}

func (s *Server) updateTable(ctx context.Context, body []byte) (any, error) {
	var input dynamodb.UpdateTableInput
	if err := decodeBody(body, &input); err != nil {
		return nil, err
	}
	out, err := s.store.UpdateTable(ctx, &input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"TableDescription": out.TableDescription}, nil
}

func (s *Server) describeTable(ctx context.Context, body []byte) (any, error) {
	var input dynamodb.DescribeTableInput
	if err := decodeBody(body, &input); err != nil {
		return nil, err
	}
	out, err := s.store.DescribeTable(ctx, &input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Table": out.Table}, nil
}

func (s *Server) deleteTable(ctx context.Context, body []byte) (any, error) {
	var input dynamodb.DeleteTableInput
	if err := decodeBody(body, &input); err != nil {
		return nil, err
	}
	out, err := s.store.DeleteTable(ctx, &input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"TableDescription": out.TableDescription}, nil
}

func (s *Server) listTables(ctx context.Context, body []byte) (any, error) {
	var input dynamodb.ListTablesInput
	if err := decodeBody(body, &input); err != nil {
		return nil, err
	}
	out, err := s.store.ListTables(ctx, &input)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{"TableNames": out.TableNames}
	if out.LastEvaluatedTableName != nil {
		resp["LastEvaluatedTableName"] = *out.LastEvaluatedTableName
	}
	return resp, nil
}

func (s *Server) putItem(ctx context.Context, body []byte) (any, error) {
	var req putItemRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.PutItem(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{}
	if out.Attributes != nil {
		resp["Attributes"] = encodeItem(out.Attributes)
	}
	return resp, nil
}

func (s *Server) getItem(ctx context.Context, body []byte) (any, error) {
	var req getItemRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.GetItem(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{}
	if out.Item != nil {
		resp["Item"] = encodeItem(out.Item)
	}
	return resp, nil
}

func (s *Server) updateItem(ctx context.Context, body []byte) (any, error) {
	var req updateItemRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.UpdateItem(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{}
	if out.Attributes != nil {
		resp["Attributes"] = encodeItem(out.Attributes)
	}
	return resp, nil
}

func (s *Server) deleteItem(ctx context.Context, body []byte) (any, error) {
	var req deleteItemRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.DeleteItem(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{}
	if out.Attributes != nil {
		resp["Attributes"] = encodeItem(out.Attributes)
	}
	return resp, nil
}

func (s *Server) query(ctx context.Context, body []byte) (any, error) {
	var req queryRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	return pageResponse(req.Select, out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey), nil
}

func (s *Server) scan(ctx context.Context, body []byte) (any, error) {
	var req scanRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}
	out, err := s.store.Scan(ctx, input)
	if err != nil {
		return nil, err
	}
	return pageResponse(req.Select, out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey), nil
}

func pageResponse(sel types.Select, items []map[string]types.AttributeValue, count, scanned int32, lastKey map[string]types.AttributeValue) map[string]any {
	resp := map[string]any{
		"Count":        count,
		"ScannedCount": scanned,
	}
	if sel != types.SelectCount {
		resp["Items"] = encodeItems(items)
	}
	if lastKey != nil {
		resp["LastEvaluatedKey"] = encodeItem(lastKey)
	}
	return resp
}
