package inmemlog

import (
	"reflect"
	"testing"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/testdata"
)

func TestNewInMemoryLog_Validation(t *testing.T) {
	_, err := NewInMemoryLog(0)
	if err == nil || err.Error() != "maxEntriesPerCall must be greater than zero" {
		t.Fatal(err)
	}
}

func TestInMemoryLog_Empty(t *testing.T) {
	iml, err := NewInMemoryLog(3)
	if err != nil {
		t.Fatal(err)
	}

	iole, err := iml.GetIndexOfLastEntry()
	if err != nil || iole != 0 {
		t.Fatal(iole, err)
	}

	_, err = iml.GetTermAtIndex(0)
	if err == nil || err.Error() != "GetTermAtIndex(): li=0" {
		t.Fatal(err)
	}
	_, err = iml.GetTermAtIndex(1)
	if err == nil || err.Error() != "GetTermAtIndex(): li=1 > iole=0" {
		t.Fatal(err)
	}

	entries, err := iml.GetEntriesAfterIndex(0)
	if err != nil || len(entries) != 0 {
		t.Fatal(entries, err)
	}
}

func TestInMemoryLog_AppendEntry(t *testing.T) {
	iml, err := NewInMemoryLog(3)
	if err != nil {
		t.Fatal(err)
	}

	li, err := iml.AppendEntry(LogEntry{TermNo: 7, Command: Command("c1")})
	if err != nil || li != 1 {
		t.Fatal(li, err)
	}
	li, err = iml.AppendEntry(LogEntry{TermNo: 8, Command: Command("c2")})
	if err != nil || li != 2 {
		t.Fatal(li, err)
	}

	term, err := iml.GetTermAtIndex(2)
	if err != nil || term != 8 {
		t.Fatal(term, err)
	}
}

func TestInMemoryLog_GetEntriesAfterIndex(t *testing.T) {
	// Log with 10 entries with terms 1,1,1,4,4,5,5,6,6,6
	iml, err := TestUtil_NewInMemoryLog_WithTerms(
		testdata.TestUtil_MakeFigure7LeaderLineTerms(), 3,
	)
	if err != nil {
		t.Fatal(err)
	}

	// none
	actualEntries, err := iml.GetEntriesAfterIndex(10)
	if err != nil {
		t.Fatal()
	}
	expectedEntries := []LogEntry{}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}

	// one
	actualEntries, err = iml.GetEntriesAfterIndex(9)
	if err != nil {
		t.Fatal()
	}
	expectedEntries = []LogEntry{
		{TermNo: 6, Command: Command("c10")},
	}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}

	// multiple
	actualEntries, err = iml.GetEntriesAfterIndex(7)
	if err != nil {
		t.Fatal()
	}
	expectedEntries = []LogEntry{
		{TermNo: 6, Command: Command("c8")},
		{TermNo: 6, Command: Command("c9")},
		{TermNo: 6, Command: Command("c10")},
	}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}

	// max
	actualEntries, err = iml.GetEntriesAfterIndex(2)
	if err != nil {
		t.Fatal()
	}
	expectedEntries = []LogEntry{
		{TermNo: 1, Command: Command("c3")},
		{TermNo: 4, Command: Command("c4")},
		{TermNo: 4, Command: Command("c5")},
	}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}

	// index of 0
	actualEntries, err = iml.GetEntriesAfterIndex(0)
	if err != nil {
		t.Fatal()
	}
	expectedEntries = []LogEntry{
		{TermNo: 1, Command: Command("c1")},
		{TermNo: 1, Command: Command("c2")},
		{TermNo: 1, Command: Command("c3")},
	}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}

	// index more than last log entry
	_, err = iml.GetEntriesAfterIndex(11)
	if err == nil || err.Error() != "GetEntriesAfterIndex(): afterLogIndex=11 > iole=10" {
		t.Fatal(err)
	}
}

func TestInMemoryLog_SetEntriesAfterIndex(t *testing.T) {
	iml, err := TestUtil_NewInMemoryLog_WithTerms([]TermNo{1, 1, 2, 3}, 3)
	if err != nil {
		t.Fatal(err)
	}

	// truncate and replace the tail
	err = iml.SetEntriesAfterIndex(2, []LogEntry{{TermNo: 4, Command: Command("c3'")}, {TermNo: 4, Command: Command("c4'")}})
	if err != nil {
		t.Fatal(err)
	}
	iole, err := iml.GetIndexOfLastEntry()
	if err != nil || iole != 4 {
		t.Fatal(iole, err)
	}
	term, err := iml.GetTermAtIndex(3)
	if err != nil || term != 4 {
		t.Fatal(term, err)
	}

	// delete everything
	err = iml.SetEntriesAfterIndex(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	iole, err = iml.GetIndexOfLastEntry()
	if err != nil || iole != 0 {
		t.Fatal(iole, err)
	}

	// setting past the end is rejected
	err = iml.SetEntriesAfterIndex(1, nil)
	if err == nil || err.Error() != "SetEntriesAfterIndex(): li=1 > iole=0" {
		t.Fatal(err)
	}
}

// Tests for InMemoryLog's maxEntries policy implementation
func TestInMemoryLog_AlternateMaxEntries(t *testing.T) {
	iml, err := TestUtil_NewInMemoryLog_WithTerms(
		testdata.TestUtil_MakeFigure7LeaderLineTerms(), 2,
	)
	if err != nil {
		t.Fatal(err)
	}

	// max
	actualEntries, err := iml.GetEntriesAfterIndex(2)
	if err != nil {
		t.Fatal()
	}
	expectedEntries := []LogEntry{
		{TermNo: 1, Command: Command("c3")},
		{TermNo: 4, Command: Command("c4")},
	}
	if !reflect.DeepEqual(actualEntries, expectedEntries) {
		t.Fatal(actualEntries)
	}
}
