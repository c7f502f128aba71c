package feed

import (
	"testing"
)

func TestJSONDecoder_LastAlternateLinkWins(t *testing.T) {
	data := `{"feed":{"entry":[
		{
			"title":{"$t":"Sales Executive"},
			"published":{"$t":"2024-01-10T08:30:00.000+03:00"},
			"link":[
				{"rel":"replies","href":"https://jobs.example/comments"},
				{"rel":"alternate","href":"https://jobs.example/first"},
				{"rel":"self","href":"https://jobs.example/self"},
				{"rel":"alternate","href":"https://jobs.example/second"}
			]
		},
		{"title":{"$t":"No links"}}
	]}}`

	entries, err := (&JSONDecoder{}).Decode([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Sales Executive" {
		t.Errorf("Expected title 'Sales Executive', got '%s'", entries[0].Title)
	}
	if entries[0].Published != "2024-01-10T08:30:00.000+03:00" {
		t.Errorf("Expected raw published value, got '%s'", entries[0].Published)
	}
	if entries[0].Link != "https://jobs.example/second" {
		t.Errorf("Expected last alternate link, got '%s'", entries[0].Link)
	}
	if entries[1].Link != "" || entries[1].Published != "" {
		t.Errorf("Expected empty link and date, got %+v", entries[1])
	}
}

func TestJSONDecoder_EmptyFeed(t *testing.T) {
	entries, err := (&JSONDecoder{}).Decode([]byte(`{"feed":{}}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestJSONDecoder_InvalidData(t *testing.T) {
	if _, err := (&JSONDecoder{}).Decode([]byte("<html>not json</html>")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestAtomDecoder(t *testing.T) {
	data := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Qatar Jobs</title>
  <entry>
    <title>Civil Engineer</title>
    <published>2024-01-10T08:30:00Z</published>
    <link rel="alternate" href="https://jobs.example/civil-engineer"/>
  </entry>
  <entry>
    <title>Accountant</title>
    <published>2024-01-09T10:00:00Z</published>
    <link rel="alternate" href="https://jobs.example/accountant"/>
  </entry>
</feed>`

	decoder, err := NewDecoder(FormatAtom)
	if err != nil {
		t.Fatal(err)
	}
	if decoder.Alt() != "atom" {
		t.Errorf("Expected alt 'atom', got '%s'", decoder.Alt())
	}

	entries, err := decoder.Decode([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Civil Engineer" || entries[0].Link != "https://jobs.example/civil-engineer" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Published != "2024-01-09T10:00:00Z" {
		t.Errorf("Expected published '2024-01-09T10:00:00Z', got '%s'", entries[1].Published)
	}
}

func TestNewDecoder(t *testing.T) {
	decoder, err := NewDecoder("")
	if err != nil {
		t.Fatal(err)
	}
	if decoder.Alt() != "json" {
		t.Errorf("Expected JSON decoder by default, got '%s'", decoder.Alt())
	}

	if _, err := NewDecoder("rss"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
