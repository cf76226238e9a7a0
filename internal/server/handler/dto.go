package handler

// Amounts cross the API boundary as decimal strings ("30.00") and are held
// internally as int64 minor units; see the money package.

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	Number         string `json:"number" binding:"required"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// OperationRequest represents a deposit or withdrawal request.
// Account accepts either an account ID or an account number.
type OperationRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// TransferRequest represents a transfer between two accounts
type TransferRequest struct {
	Source string `json:"source" binding:"required"`
	Dest   string `json:"dest" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// OperationResponse represents a committed deposit or withdrawal
type OperationResponse struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	NewBalance  string `json:"new_balance"`
	Seq         int64  `json:"seq"`
	Timestamp   string `json:"timestamp"`
}

// TransferResponse represents a committed transfer
type TransferResponse struct {
	OperationID   string `json:"operation_id"`
	Kind          string `json:"kind"`
	SourceAccount string `json:"source_account"`
	DestAccount   string `json:"dest_account"`
	Amount        string `json:"amount"`
	SourceBalance string `json:"source_balance"`
	DestBalance   string `json:"dest_balance"`
	Seq           int64  `json:"seq"`
	Timestamp     string `json:"timestamp"`
}

// AuditQueryParams represents query parameters for the audit log endpoint
type AuditQueryParams struct {
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	Kind      string `form:"kind" binding:"omitempty,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page,default=1" binding:"min=1"`
	PerPage   int    `form:"per_page,default=50" binding:"min=1,max=500"`
}

// AuditRecordResponse represents an audit record in API responses
type AuditRecordResponse struct {
	Seq           int64  `json:"seq"`
	OperationID   string `json:"operation_id"`
	Kind          string `json:"kind"`
	Amount        string `json:"amount"`
	SourceAccount string `json:"source_account"`
	DestAccount   string `json:"dest_account,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// AuditListResponse represents a list of audit records in API responses
type AuditListResponse struct {
	Records []AuditRecordResponse `json:"records"`
}
