package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tributes/core/tribute"
)

func TestImageFilename(t *testing.T) {
	day := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		tribName  string
		createdAt time.Time
		ref       string
		want      string
	}{
		{name: "apostrophe and upper ext", tribName: "O'Brien", createdAt: day, ref: "x.PNG", want: "O-Brien-2025-03-01.png"},
		{name: "spaces", tribName: "Mary Jane", createdAt: day, ref: "/api/images/tribute-1-abc.jpeg", want: "Mary-Jane-2025-03-01.jpeg"},
		{name: "unicode", tribName: "José Núñez", createdAt: day, ref: "a.webp", want: "Jos--N--ez-2025-03-01.webp"},
		{name: "emoji is one rune", tribName: "Rose🌹Ann", createdAt: day, ref: "a.png", want: "Rose-Ann-2025-03-01.png"},
		{name: "missing ext", tribName: "Ann", createdAt: day, ref: "/api/images/noext", want: "Ann-2025-03-01.jpg"},
		{name: "query suffix", tribName: "Ann", createdAt: day, ref: "https://cdn.test/p/photo.JPG?v=2", want: "Ann-2025-03-01.jpg"},
		{name: "query without ext", tribName: "Ann", createdAt: day, ref: "https://cdn.test/p/photo?fmt=png", want: "Ann-2025-03-01.jpg"},
		{
			name:      "date in utc",
			tribName:  "Ann",
			createdAt: time.Date(2025, 3, 1, 22, 0, 0, 0, time.FixedZone("EST", -5*3600)),
			ref:       "a.gif",
			want:      "Ann-2025-03-02.gif",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFilename(tt.tribName, tt.createdAt, tt.ref); got != tt.want {
				t.Errorf("ImageFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanImages(t *testing.T) {
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	later := day.Add(3 * time.Hour) // same day, same filename

	tributes := []tribute.Tribute{
		{ID: 1, Name: "Ann", Message: "m", CreatedAt: day, ImageURL: null.StringFrom("/api/images/first.png")},
		{ID: 2, Name: "Bob", Message: "m", CreatedAt: day},
		{ID: 3, Name: "Cid", Message: "m", CreatedAt: day, ImageURL: null.StringFrom("/api/images/cid.gif")},
		{ID: 4, Name: "Ann", Message: "m", CreatedAt: later, ImageURL: null.StringFrom("/api/images/second.png")},
	}

	jobs := planImages(tributes)
	assert.Equal(t, []imageJob{
		{filename: "Ann-2025-03-01.png", ref: "/api/images/second.png", name: "Ann"},
		{filename: "Cid-2025-03-01.gif", ref: "/api/images/cid.gif", name: "Cid"},
	}, jobs)
	assert.Empty(t, planImages(tributes[1:2]))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "linked", want: ModeLinked},
		{in: " Bundled ", want: ModeBundled},
		{in: "pdf", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
