package bhavcopy

import (
	"strings"
	"testing"
)

const legacyCSV = `Date,Instrument Name,Symbol,Expiry Date,Open,High,Low,Close,Previous Close,Volume(Lots),Value,Open Interest
2025-03-10,FUTCOM,GOLD,04-Apr-2025,86000,86500,85800,86210,85950,12480,10760,15230
2025-03-10,FUTCOM,GOLD,05-Jun-2025,86400,86900,86200,86610,86350,3210,2780,8120
2025-03-10,FUTCOM,SILVER,04-Apr-2025,96000,97100,95800,96720,95900,20110,19450,22040
`

const udiffCSV = `TradDt,FinInstrmTp,TckrSymb,XpryDt,OpnPric,HghPric,LwPric,ClsPric,PrvsClsgPric,TtlTradgVol,TtlTrfVal,OpnIntrst
2025-03-10,FUTCOM,GOLD,2025-04-04,86000,86500,85800,86210,85950,12480,10760,15230
`

func TestParse_LegacyHeader(t *testing.T) {
	rows, err := Parse(strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}

	r := rows[0]
	if r.Symbol != "GOLD" || r.Close != 86210 || r.Open != 86000 {
		t.Errorf("row mismatch: %+v", r)
	}
	if r.PrevClose == nil || *r.PrevClose != 85950 {
		t.Errorf("prev close: got %v, want 85950", r.PrevClose)
	}
	if r.OpenInterest == nil || *r.OpenInterest != 15230 {
		t.Errorf("open interest: got %v, want 15230", r.OpenInterest)
	}
	if r.Date.Format("2006-01-02") != "2025-03-10" {
		t.Errorf("date: got %v", r.Date)
	}
}

func TestParse_UDiFFHeaderResolvesSameSchema(t *testing.T) {
	rows, err := Parse(strings.NewReader(udiffCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: got %d, want 1", len(rows))
	}
	r := rows[0]
	if r.Symbol != "GOLD" || r.Close != 86210 || r.Volume == nil || *r.Volume != 12480 {
		t.Errorf("UDiFF row mismatch: %+v", r)
	}
}

func TestParse_MissingRequiredColumnIsHardError(t *testing.T) {
	// No close-price alias anywhere in the header.
	csv := "Date,Symbol,Open,High,Low\n2025-03-10,GOLD,1,2,0.5\n"
	if _, err := Parse(strings.NewReader(csv)); err == nil {
		t.Fatal("expected hard error for unresolvable required field")
	} else if !strings.Contains(err.Error(), "close") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestParse_NonNumericOptionalStaysNil(t *testing.T) {
	csv := "Date,Symbol,Open,High,Low,Close,Volume\n2025-03-10,GOLD,100,105,95,102,-\n"
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].Volume != nil {
		t.Errorf("volume: got %v, want nil", *rows[0].Volume)
	}
}

func TestParse_NonNumericPriceParsesToZero(t *testing.T) {
	// A garbage close stays 0 so that bar validation rejects it downstream.
	csv := "Date,Symbol,Open,High,Low,Close\n2025-03-10,GOLD,100,105,95,n/a\n"
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].Close != 0 {
		t.Errorf("close: got %v, want 0", rows[0].Close)
	}
}

func TestSelectNearMonth(t *testing.T) {
	rows, err := Parse(strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	row, ok := SelectNearMonth(rows, "gold")
	if !ok {
		t.Fatal("expected a GOLD row")
	}
	// April expiry beats June even though both are GOLD.
	if row.Expiry != "04-Apr-2025" || row.Close != 86210 {
		t.Errorf("near-month selection: got expiry %s close %v", row.Expiry, row.Close)
	}

	if _, ok := SelectNearMonth(rows, "COPPER"); ok {
		t.Error("COPPER should not be found")
	}
}
