package upstream

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Providers are loose with numeric fields: the same field may arrive as a
// number, a quoted number, null, or be absent entirely. FlexFloat and
// TxnCount absorb all of those, decoding anything unusable as zero so one
// sloppy record never fails a whole payload.

// FlexFloat decodes a JSON number or numeric string; anything else is 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// TxnCount decodes the 24h transaction field, which is either a structured
// {"buys": n, "sells": n} object or a raw integer.
type TxnCount int64

func (t *TxnCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			Buys  FlexFloat `json:"buys"`
			Sells FlexFloat `json:"sells"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			*t = 0
			return nil
		}
		*t = TxnCount(int64(obj.Buys) + int64(obj.Sells))
		return nil
	}

	var v FlexFloat
	if err := json.Unmarshal(data, &v); err != nil {
		*t = 0
		return nil
	}
	*t = TxnCount(int64(v))
	return nil
}

// BaseToken identifies the asset side of a trading pair.
type BaseToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is one market record from the screener.
type Pair struct {
	BaseToken BaseToken `json:"baseToken"`
	DexID     string    `json:"dexId"`
	PriceUSD  FlexFloat `json:"priceUsd"`
	FDV       FlexFloat `json:"fdv"`
	Liquidity struct {
		USD FlexFloat `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 FlexFloat `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H1 FlexFloat `json:"h1"`
	} `json:"priceChange"`
	Txns struct {
		H24 TxnCount `json:"h24"`
	} `json:"txns"`
}

// PairsResponse is the screener's envelope for search and token lookups.
type PairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// oracleResponse is the price oracle's envelope: data[address].price.
type oracleResponse struct {
	Data map[string]struct {
		Price FlexFloat `json:"price"`
	} `json:"data"`
}
