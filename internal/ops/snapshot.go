package ops

import (
	"time"

	"wallet-fleet-go/internal/store"
	"wallet-fleet-go/internal/wallet"
)

// AccountView is one account's state as exposed to observers. Presentation
// order follows the static account list, never worker completion order.
type AccountView struct {
	Address         string `json:"address"`
	MaskedKey       string `json:"masked_key"`
	Balance         string `json:"balance_wei"`
	TransferBalance string `json:"transfer_balance_wei,omitempty"`
	Claimable       string `json:"claimable,omitempty"`
	TokenBalance    string `json:"token_balance,omitempty"`
	TotalMoved      string `json:"total_moved,omitempty"`
	Required        string `json:"required_wei,omitempty"`
	Sufficient      *bool  `json:"sufficient,omitempty"`
	TxHash          string `json:"tx_hash,omitempty"`
	ReceiptStatus   int    `json:"receipt_status"`
	Skipped         bool   `json:"skipped,omitempty"`
	SkipReason      string `json:"skip_reason,omitempty"`
	Error           string `json:"error,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
}

// Snapshot is one point-in-time view of the whole campaign.
type Snapshot struct {
	State         string        `json:"state"`
	Observed      int64         `json:"observed_height"`
	Target        int64         `json:"target_height"`
	Endpoint      string        `json:"endpoint"`
	WorkRemaining string        `json:"work_remaining"`
	Accounts      []AccountView `json:"accounts"`
	At            time.Time     `json:"at"`
}

// Snapshot captures the current campaign state for the status hub.
func (rt *Runtime) Snapshot(state string, workRemaining string) Snapshot {
	states := rt.State.Snapshot()
	views := make([]AccountView, 0, len(states))
	for i, st := range states {
		acct := rt.Accounts[i]
		v := AccountView{
			Address:       acct.Address.Hex(),
			MaskedKey:     wallet.Masked(acct.KeyHex),
			ReceiptStatus: st.Result.ReceiptStatus,
			Skipped:       st.Result.Skipped,
			SkipReason:    st.Result.SkipReason,
		}
		if st.Balance != nil {
			v.Balance = st.Balance.String()
		}
		if st.TransferBalance != nil && st.TransferBalance.Sign() > 0 {
			v.TransferBalance = st.TransferBalance.String()
		}
		if st.Claimable != nil && st.Claimable.Sign() > 0 {
			v.Claimable = st.Claimable.String()
		}
		if st.TokenBalance != nil && st.TokenBalance.Sign() > 0 {
			v.TokenBalance = st.TokenBalance.String()
		}
		if st.TotalMoved != nil && st.TotalMoved.Sign() > 0 {
			v.TotalMoved = st.TotalMoved.String()
		}
		if st.Verdict != nil {
			v.Required = st.Verdict.Required.String()
			sufficient := st.Verdict.Sufficient
			v.Sufficient = &sufficient
		}
		if st.Result.Submitted() {
			v.TxHash = st.Result.TxHash.Hex()
		}
		if st.Result.Err != nil {
			v.Error = st.Result.Err.Error()
			v.ErrorKind = st.Result.Kind.String()
		}
		views = append(views, v)
	}
	return Snapshot{
		State:         state,
		Observed:      rt.Gate.Observed(),
		Target:        rt.Gate.Target(),
		Endpoint:      rt.Pool.Current(),
		WorkRemaining: workRemaining,
		Accounts:      views,
		At:            time.Now(),
	}
}

// PassResults converts the current state table into recorder rows.
func (rt *Runtime) PassResults(pass int64) []store.PassResult {
	states := rt.State.Snapshot()
	now := time.Now()
	rows := make([]store.PassResult, 0, len(states))
	for i, st := range states {
		row := store.PassResult{
			PassNumber:    pass,
			Address:       rt.Accounts[i].Address.Hex(),
			Skipped:       st.Result.Skipped,
			SkipReason:    st.Result.SkipReason,
			ReceiptStatus: st.Result.ReceiptStatus,
			RecordedAt:    now,
		}
		if st.Result.Submitted() {
			row.TxHash = st.Result.TxHash.Hex()
		}
		if st.Result.Err != nil {
			row.ErrorKind = st.Result.Kind.String()
			row.ErrorText = st.Result.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
