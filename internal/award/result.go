package award

// Kind классифицирует исход для транспортного слоя; в JSON не попадает
type Kind int

const (
	KindSuccess Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	// KindPartial: присуждение зафиксировано, но последующий шаг не выполнен
	KindPartial
	KindInternal
)

const (
	MsgFinalized      = "Work order finalized successfully."
	MsgFailed         = "Failed to create work order. Please try again later."
	MsgBidderNotFound = "Bidder not found"
	MsgAlreadyAwarded = "Work order already issued for this work."
	MsgInProgress     = "Work order for this work is already being processed."
	MsgAgreementTaken = "Agreement number is already used by another work."
)

// Result - либо {success: ...}, либо {error: ...}
type Result struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"-"`
}

func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

func success(msg string) Result {
	return Result{Success: msg, Kind: KindSuccess}
}

func failure(kind Kind, msg string) Result {
	return Result{Error: msg, Kind: kind}
}
