package signals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shadowcheck/shadowcheck/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBulkHashtags(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	res := set.Hashtags.CheckBulk([]string{"followback", "f4f", "tech"}, "twitter")
	assert.Equal([]string{"followback", "f4f"}, res.Banned)
	assert.Equal([]string{"tech"}, res.Safe)
	assert.Empty(res.Restricted)
	assert.Empty(res.Monitored)
	assert.Equal(3, res.Summary.Total)
	assert.Equal(2, res.Summary.Banned)
	assert.Equal(50, res.Summary.RiskScore)
	assert.Len(res.Matches, 2)
	assert.Equal("engagement-farming", res.Matches[0].Entry.Category)

	// sigils, case, and duplicates don't matter
	res = set.Hashtags.CheckBulk([]string{"#FollowBack", "followback", "＃F4F"}, "x")
	assert.Equal([]string{"followback", "f4f"}, res.Banned)
	assert.Equal(2, res.Summary.Total)

	// unknown tokens are safe
	res = set.Hashtags.CheckBulk([]string{"somethingnobodyhasheardof"}, "twitter")
	assert.Equal([]string{"somethingnobodyhasheardof"}, res.Safe)
	assert.Equal(0, res.Summary.RiskScore)

	res = set.Hashtags.CheckBulk(nil, "twitter")
	assert.NotNil(res.Banned)
	assert.NotNil(res.Safe)
	assert.Equal(Summary{}, res.Summary)
}

func TestCheckBulkPlatformScope(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	res := set.Hashtags.CheckBulk([]string{"desk"}, "instagram")
	assert.Equal([]string{"desk"}, res.Banned)

	res = set.Hashtags.CheckBulk([]string{"desk"}, "twitter")
	assert.Equal([]string{"desk"}, res.Safe)
}

func TestCheckBulkMostSevereWins(t *testing.T) {
	assert := assert.New(t)
	db := NewDatabase(KindHashtags, []Entry{
		{Token: "spicy", Tier: TierMonitored, Platforms: []string{platform.All}, Category: "general"},
		{Token: "#Spicy", Tier: TierBanned, Platforms: []string{"tiktok"}, Category: "adult"},
		{Token: "bogus", Tier: Tier("extreme")},
	}, platform.DefaultRegistry())

	res := db.CheckBulk([]string{"spicy"}, "tiktok")
	assert.Equal([]string{"spicy"}, res.Banned)
	assert.Equal("adult", res.Matches[0].Entry.Category)

	res = db.CheckBulk([]string{"spicy"}, "reddit")
	assert.Equal([]string{"spicy"}, res.Monitored)

	// invalid tier was dropped
	assert.Equal(2, db.Stats().Total)
	assert.Equal(1, db.Stats().CountsByTier[TierBanned])
	assert.Equal(0, db.Stats().CountsByTier[TierRestricted])
}

func TestCheckBulkOrderIndependent(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	a := set.Hashtags.CheckBulk([]string{"f4f", "viral", "tech", "followme", "followback"}, "instagram")
	b := set.Hashtags.CheckBulk([]string{"followback", "tech", "followme", "viral", "f4f"}, "instagram")
	assert.ElementsMatch(a.Banned, b.Banned)
	assert.ElementsMatch(a.Restricted, b.Restricted)
	assert.ElementsMatch(a.Monitored, b.Monitored)
	assert.ElementsMatch(a.Safe, b.Safe)
	assert.Equal(a.Summary, b.Summary)
	// the slices themselves keep input order
	assert.Equal([]string{"f4f", "followback"}, a.Banned)
	assert.Equal([]string{"followback", "f4f"}, b.Banned)
	assert.Equal("followback", b.Matches[0].Token)

	// repeated calls give identical output
	c := set.Hashtags.CheckBulk([]string{"f4f", "viral", "tech", "followme", "followback"}, "instagram")
	assert.Equal(a, c)
}

func TestCheckBulkScoreCapped(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	res := set.Hashtags.CheckBulk([]string{"followback", "f4f", "follow4follow", "followforfollow", "followtrain", "l4l"}, "twitter")
	assert.Equal(6, res.Summary.Banned)
	assert.Equal(100, res.Summary.RiskScore)
}

func TestLinkLookup(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	res := set.Links.CheckBulk([]string{
		"https://sub.grabify.link/abc",
		"bit.ly/xyz",
		"https://notgrabify.link/",
		"https://www.wikipedia.org/wiki/Go",
	}, "twitter")
	assert.Equal([]string{"sub.grabify.link"}, res.Banned)
	assert.Equal([]string{"bit.ly"}, res.Monitored)
	assert.ElementsMatch([]string{"notgrabify.link", "wikipedia.org"}, res.Safe)

	e, ok := set.Links.Lookup("substack.com", "twitter")
	assert.True(ok)
	assert.Equal(TierRestricted, e.Tier)
	_, ok = set.Links.Lookup("substack.com", "reddit")
	assert.False(ok)
}

func TestExtractAndCheck(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	hr := set.Hashtags.ExtractAndCheck("New post #FollowBack #tech", "twitter")
	assert.Equal(KindHashtags, hr.Kind)
	assert.Equal([]string{"FollowBack", "tech"}, hr.Tokens)
	assert.Equal([]string{"followback"}, hr.Results.Banned)

	tr := set.Terms.ExtractAndCheck("Check my bio for a promo code! $BTC", "twitter")
	assert.Contains(tr.Results.Restricted, "check my bio")
	assert.Contains(tr.Results.Restricted, "promo code")
	assert.Contains(tr.Results.Monitored, "$btc")

	// no cashtag convention on instagram
	tr = set.Terms.ExtractAndCheck("Check my bio for a promo code! $BTC", "instagram")
	assert.NotContains(tr.Results.Monitored, "$btc")

	// unknown platform falls back to generic extraction
	hr = set.Hashtags.ExtractAndCheck("#f4f all day", "myspace")
	assert.Equal([]string{"f4f"}, hr.Results.Banned)

	er := set.Emojis.ExtractAndCheck("to the moon 🚀🚀 🔥", "twitter")
	assert.Len(er.Tokens, 3)
	assert.Equal([]string{"🚀", "🔥"}, er.Results.Monitored)

	hr = set.Hashtags.ExtractAndCheck("", "twitter")
	assert.Empty(hr.Tokens)
	assert.Equal(0, hr.Results.Summary.Total)
}

func TestSetStats(t *testing.T) {
	assert := assert.New(t)
	set := Default(platform.DefaultRegistry())

	stats := set.Stats()
	require.Len(t, stats, len(AllKinds))
	for i, s := range stats {
		assert.Equal(string(AllKinds[i]), s.Name)
		assert.Greater(s.Total, 0)
		sum := 0
		for _, n := range s.CountsByTier {
			sum += n
		}
		assert.Equal(s.Total, sum)
	}
}

func TestLoadEntriesJSON(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"hashtags": [{"token": "#NewSpam", "tier": "banned", "platforms": ["twitter"], "category": "spam"}],
		"links": [{"token": "evil.example", "tier": "restricted", "category": "malware"}]
	}`), 0644))

	extra, err := LoadEntriesJSON(good)
	require.NoError(t, err)
	set := NewSet(MergeEntries(BuiltinEntries(), extra), platform.DefaultRegistry())

	res := set.Hashtags.CheckBulk([]string{"newspam", "f4f"}, "twitter")
	assert.ElementsMatch([]string{"newspam", "f4f"}, res.Banned)
	res = set.Hashtags.CheckBulk([]string{"newspam"}, "instagram")
	assert.Equal([]string{"newspam"}, res.Safe)

	// no platforms means everywhere
	e, ok := set.Links.Lookup("evil.example", "reddit")
	assert.True(ok)
	assert.Equal(TierRestricted, e.Tier)

	badTier := filepath.Join(dir, "tier.json")
	require.NoError(t, os.WriteFile(badTier, []byte(`{"hashtags": [{"token": "x", "tier": "nuked"}]}`), 0644))
	_, err = LoadEntriesJSON(badTier)
	assert.Error(err)

	badKind := filepath.Join(dir, "kind.json")
	require.NoError(t, os.WriteFile(badKind, []byte(`{"usernames": []}`), 0644))
	_, err = LoadEntriesJSON(badKind)
	assert.Error(err)

	_, err = LoadEntriesJSON(filepath.Join(dir, "missing.json"))
	assert.Error(err)
}
