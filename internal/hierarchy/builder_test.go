package hierarchy

import (
	"errors"
	"testing"

	"gazette/internal/ga"
)

func TestAccountIDFromWebPropertyID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id, err := AccountIDFromWebPropertyID("UA-89135-2")
		if err != nil {
			t.Fatalf("AccountIDFromWebPropertyID returned error: %v", err)
		}
		if id != 89135 {
			t.Errorf("AccountIDFromWebPropertyID = %d, want 89135", id)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, s := range []string{"", "UA-89135", "UA--2", "ua-89135-2", "UA-89135-2-extra", "XA-89135-2", "UA-89135-"} {
			if _, err := AccountIDFromWebPropertyID(s); !errors.Is(err, ErrMalformedIdentifier) {
				t.Errorf("AccountIDFromWebPropertyID(%q) error = %v, want ErrMalformedIdentifier", s, err)
			}
		}
	})
}

func TestBuild(t *testing.T) {
	accounts := []ga.Account{
		{ID: "89135", Name: "First Account"},
		{ID: "12345", Name: "Second Account"},
	}
	properties := []ga.WebProperty{
		{ID: "UA-89135-1", Name: "Main Site"},
		{ID: "UA-89135-2", Name: "Blog"},
		{ID: "UA-12345-1", Name: "Shop"},
	}
	profiles := []ga.Profile{
		{ID: "501", Name: "All Traffic", WebPropertyID: "UA-89135-1"},
		{ID: "502", Name: "Mobile Only", WebPropertyID: "UA-89135-1"},
		{ID: "601", Name: "Shop Traffic", WebPropertyID: "UA-12345-1"},
	}

	t.Run("every profile lands under its parsed account", func(t *testing.T) {
		h, err := Build(accounts, properties, profiles)
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}

		if len(h.Accounts) != 2 {
			t.Fatalf("got %d accounts, want 2", len(h.Accounts))
		}

		first := h.Accounts[89135]
		if first == nil || first.Name != "First Account" {
			t.Fatalf("account 89135 missing or misnamed: %+v", first)
		}
		if len(first.Properties) != 2 {
			t.Errorf("account 89135 has %d properties, want 2", len(first.Properties))
		}

		main := first.Properties["UA-89135-1"]
		if main == nil || main.Name != "Main Site" {
			t.Fatalf("property UA-89135-1 missing or misnamed: %+v", main)
		}
		if main.Profiles[501] != "All Traffic" || main.Profiles[502] != "Mobile Only" {
			t.Errorf("profiles under UA-89135-1 = %v", main.Profiles)
		}

		shop := h.Accounts[12345].Properties["UA-12345-1"]
		if shop == nil || shop.Profiles[601] != "Shop Traffic" {
			t.Errorf("profile 601 not filed under UA-12345-1: %+v", shop)
		}

		// Every listed profile must appear exactly once.
		seen := 0
		for _, account := range h.Accounts {
			for _, property := range account.Properties {
				seen += len(property.Profiles)
			}
		}
		if seen != len(profiles) {
			t.Errorf("hierarchy holds %d profiles, want %d", seen, len(profiles))
		}
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		h, err := Build(accounts, properties, profiles)
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}

		if len(h.Order) != 2 || h.Order[0] != 89135 || h.Order[1] != 12345 {
			t.Errorf("account order = %v, want [89135 12345]", h.Order)
		}
		first := h.Accounts[89135]
		if len(first.Order) != 2 || first.Order[0] != "UA-89135-1" || first.Order[1] != "UA-89135-2" {
			t.Errorf("property order = %v, want [UA-89135-1 UA-89135-2]", first.Order)
		}
		main := first.Properties["UA-89135-1"]
		if len(main.Order) != 2 || main.Order[0] != 501 || main.Order[1] != 502 {
			t.Errorf("profile order = %v, want [501 502]", main.Order)
		}
	})

	t.Run("empty accounts and properties are kept", func(t *testing.T) {
		h, err := Build(accounts, properties, nil)
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		blog := h.Accounts[89135].Properties["UA-89135-2"]
		if blog == nil || len(blog.Profiles) != 0 {
			t.Errorf("property with no profiles should exist empty: %+v", blog)
		}
		if second := h.Accounts[12345]; second == nil {
			t.Error("account with no profiles should still exist")
		}
	})

	t.Run("implicit parents are created", func(t *testing.T) {
		// A profile whose account and property appear in no other listing.
		h, err := Build(nil, nil, []ga.Profile{
			{ID: "9", Name: "Orphan", WebPropertyID: "UA-777-3"},
		})
		if err != nil {
			t.Fatalf("Build returned error: %v", err)
		}
		account := h.Accounts[777]
		if account == nil {
			t.Fatal("account 777 was not created")
		}
		property := account.Properties["UA-777-3"]
		if property == nil || property.Profiles[9] != "Orphan" {
			t.Errorf("profile not filed under implicit parents: %+v", property)
		}
	})

	t.Run("malformed property id is fatal", func(t *testing.T) {
		_, err := Build(accounts, []ga.WebProperty{{ID: "bogus", Name: "X"}}, nil)
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Errorf("Build error = %v, want ErrMalformedIdentifier", err)
		}
	})

	t.Run("malformed profile parent id is fatal", func(t *testing.T) {
		_, err := Build(accounts, properties, []ga.Profile{
			{ID: "1", Name: "X", WebPropertyID: "UA-x-1"},
		})
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Errorf("Build error = %v, want ErrMalformedIdentifier", err)
		}
	})

	t.Run("non numeric account id is fatal", func(t *testing.T) {
		_, err := Build([]ga.Account{{ID: "abc", Name: "X"}}, nil, nil)
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Errorf("Build error = %v, want ErrMalformedIdentifier", err)
		}
	})
}
