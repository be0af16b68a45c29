package domain

// AlertKind identifies the payload type of a dispatched alert.
type AlertKind string

const (
	AlertKindTransfer         AlertKind = "transfer"
	AlertKindTokenListChanged AlertKind = "token_list_changed"
	AlertKindThresholdCrossed AlertKind = "threshold_crossed"
	AlertKindPercentChange    AlertKind = "percent_change"
	AlertKindPeriodicSummary  AlertKind = "periodic_summary"
	AlertKindTokenValueChange AlertKind = "token_value_change"
	AlertKindWhale            AlertKind = "whale"
)

// Direction labels which way a value moved.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Alert is a structured payload handed to the dispatcher. Engines only build
// payloads; rendering and transport belong to the chat layer.
type Alert interface {
	Kind() AlertKind
}

// TransferNotification reports a new transfer seen on a tracked wallet.
type TransferNotification struct {
	ID            string
	WalletAddress string
	Signature     string
	Sender        string
	Receiver      string
	MintID        string
	Amount        float64
	ValueUSD      float64
	BlockTime     int64
}

func (TransferNotification) Kind() AlertKind { return AlertKindTransfer }

// TokenHolding describes one token inside a token-list change.
type TokenHolding struct {
	Symbol         string
	ValueUSD       float64
	PriceChange1dP float64
}

// TokenListChanged reports symbols added to or removed from a wallet.
type TokenListChanged struct {
	ID            string
	WalletAddress string
	Added         []TokenHolding
	Removed       []string
}

func (TokenListChanged) Kind() AlertKind { return AlertKindTokenListChanged }

// ThresholdCrossed reports the wallet total crossing the subscriber's floor.
type ThresholdCrossed struct {
	ID            string
	WalletAddress string
	Direction     Direction
	Threshold     float64
	PreviousValue float64
	CurrentValue  float64
}

func (ThresholdCrossed) Kind() AlertKind { return AlertKindThresholdCrossed }

// PercentChangeAlert reports a total-value swing of at least the configured
// percentage between two consecutive observations.
type PercentChangeAlert struct {
	ID            string
	WalletAddress string
	Direction     Direction
	Percent       float64
	PreviousValue float64
	CurrentValue  float64
}

func (PercentChangeAlert) Kind() AlertKind { return AlertKindPercentChange }

// PeriodicSummary is the full holdings report emitted whenever the wallet
// total meets the subscriber's floor, and once as a baseline on start.
type PeriodicSummary struct {
	ID            string
	WalletAddress string
	TotalValueUSD float64
	Category      string
	PnLPercent    *float64
	Holdings      []TokenHolding
	Baseline      bool
}

func (PeriodicSummary) Kind() AlertKind { return AlertKindPeriodicSummary }

// TokenValueChange is one entry of a consolidated per-token move alert.
type TokenValueChange struct {
	Symbol        string
	PreviousValue float64
	CurrentValue  float64
	Percent       float64
}

// TokenValueChangeAlert lists the most significant per-token moves of one
// wallet in one cycle, sorted by absolute percent descending.
type TokenValueChangeAlert struct {
	ID            string
	WalletAddress string
	Changes       []TokenValueChange
}

func (TokenValueChangeAlert) Kind() AlertKind { return AlertKindTokenValueChange }

// WhaleAlert reports a watched-token transfer meeting the subscriber's own
// threshold.
type WhaleAlert struct {
	ID        string
	TokenID   string
	Symbol    string
	Signature string
	Sender    string
	Receiver  string
	Amount    float64
	ValueUSD  float64
	BlockTime int64
}

func (WhaleAlert) Kind() AlertKind { return AlertKindWhale }
