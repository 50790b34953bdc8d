package vcf

import (
	"errors"
	"strings"
	"testing"
)

const gvcfContent = `##fileformat=VCFv4.2
##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">
##FORMAT=<ID=RGQ,Number=1,Type=Integer,Description="Unconditional reference genotype confidence">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
chr1	100	.	A	.	.	.	.	GT:DP:RGQ	0/0:30:45	0/0:8:12
chr1	101	rs1	C	T	50.3	PASS	DP=40;DB	GT:DP:GQ	0/1:20:99	./.:.:.

chr1	200	.	G	<NON_REF>	.	.	END=210	GT:DP:GQ	0/0:25:60	0/0:3
chr1	x	.	G	A	.	.	.	GT	0/1	0/0
chr1	300	.	G	A	.	.	.	GT	0/1
`

func TestParser_Records(t *testing.T) {
	parser, err := NewParserFromReader(strings.NewReader(gvcfContent))
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	names := parser.SampleNames()
	if len(names) != 2 || names[0] != "S1" || names[1] != "S2" {
		t.Fatalf("Unexpected sample names: %v", names)
	}

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v.Chrom != "chr1" || v.Pos != 100 {
		t.Errorf("Expected chr1:100, got %s:%d", v.Chrom, v.Pos)
	}
	if got, ok := v.SampleValue(0, "RGQ"); !ok || got != "45" {
		t.Errorf("S1 RGQ = %q (%v), want 45", got, ok)
	}
	if _, ok := v.SampleValue(0, "GQ"); ok {
		t.Error("GQ should be absent from FORMAT")
	}

	v, err = parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v.ID != "rs1" || v.Qual != 50.3 || v.Filter != "PASS" {
		t.Errorf("Unexpected fields: %+v", v)
	}
	if v.Info["DP"] != "40" || v.Info["DB"] != true {
		t.Errorf("Unexpected INFO: %v", v.Info)
	}
	if _, ok := v.SampleValue(1, "GQ"); ok {
		t.Error("Missing GQ (.) should not be reported")
	}

	// Empty line is skipped; gVCF block follows.
	v, err = parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v.End() != 210 {
		t.Errorf("Expected END 210, got %d", v.End())
	}
	if _, ok := v.SampleValue(1, "GQ"); ok {
		t.Error("Truncated sample column should not report GQ")
	}

	_, err = parser.Next()
	var perr *ParseError
	if !errors.As(err, &perr) || !strings.Contains(perr.Message, "invalid position") {
		t.Errorf("Expected invalid position ParseError, got %v", err)
	}

	_, err = parser.Next()
	if !errors.As(err, &perr) || !strings.Contains(perr.Message, "expected 2 sample columns") {
		t.Errorf("Expected sample column ParseError, got %v", err)
	}

	v, err = parser.Next()
	if err != nil || v != nil {
		t.Errorf("Expected end of input, got %v, %v", v, err)
	}
}

func TestParser_MissingChromHeader(t *testing.T) {
	_, err := NewParserFromReader(strings.NewReader("##fileformat=VCFv4.2\nchr1\t1\t.\tA\tC\t.\t.\t.\n"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("Expected error at line 2, got %d", perr.Line)
	}
}

func TestParser_NonPositivePosition(t *testing.T) {
	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\n" +
		"chr1\t0\t.\tA\t.\t.\t.\t.\tGQ\t99\n" +
		"chr1\t-3\t.\tA\t.\t.\t.\tEND=2\tGQ\t99\n" +
		"chr1\t1\t.\tA\t.\t.\t.\t.\tGQ\t99\n"
	parser, err := NewParserFromReader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	for _, line := range []int{2, 3} {
		_, err := parser.Next()
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Expected ParseError for line %d, got %v", line, err)
		}
		if perr.Line != line || !strings.Contains(perr.Message, "invalid position") {
			t.Errorf("Unexpected error: %v", perr)
		}
	}

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v.Pos != 1 {
		t.Errorf("Expected position 1, got %d", v.Pos)
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected 8 columns, found 7",
	}

	expected := "vcf parse error at line 42: expected 8 columns, found 7"
	if err.Error() != expected {
		t.Errorf("Error message mismatch: got %q, want %q", err.Error(), expected)
	}
}
