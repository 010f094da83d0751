package signals

import (
	"github.com/shadowcheck/shadowcheck/platform"
)

var allPlatforms = []string{platform.All}

func entries(tier Tier, category string, platforms []string, notes string, tokens ...string) []Entry {
	out := make([]Entry, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, Entry{
			Token:     t,
			Tier:      tier,
			Platforms: platforms,
			Category:  category,
			Notes:     notes,
		})
	}
	return out
}

func concat(lists ...[]Entry) []Entry {
	var out []Entry
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Returns a fresh copy of the built-in tables, keyed by database kind.
func BuiltinEntries() map[Kind][]Entry {
	return map[Kind][]Entry{
		KindHashtags: builtinHashtags(),
		KindLinks:    builtinLinks(),
		KindTerms:    builtinTerms(),
		KindMentions: builtinMentions(),
		KindEmojis:   builtinEmojis(),
	}
}

func builtinHashtags() []Entry {
	return concat(
		entries(TierBanned, "engagement-farming", allPlatforms, "follow-for-follow schemes",
			"followback", "f4f", "follow4follow", "followforfollow", "followtrain", "teamfollowback", "instantfollowback", "gainwithxtiana", "gainpost"),
		entries(TierBanned, "engagement-farming", allPlatforms, "like and comment exchange",
			"l4l", "like4like", "likeforlike", "likeforlikes", "c4c", "comment4comment", "sub4sub", "s4s"),
		entries(TierBanned, "adult", []string{"instagram", "tiktok"}, "hidden from hashtag search",
			"adulting", "beautyblogger", "curvygirls", "desk", "elevator", "humpday", "kansas", "mustfollow", "petite", "pushups", "selfharm", "snapchat", "stranger", "thighs"),
		entries(TierBanned, "spam", []string{"twitter"}, "trend hijacking",
			"retweet", "rt2gain", "mgwv", "ipad", "teamfollowback"),
		entries(TierRestricted, "engagement-farming", allPlatforms, "",
			"followme", "follow", "likes", "instalike", "instafollow", "tagsforlikes", "tflers", "likeback", "followers"),
		entries(TierRestricted, "health-misinformation", allPlatforms, "reduced distribution",
			"plandemic", "vaccinesinjure", "covidhoax", "miraclecure"),
		entries(TierRestricted, "financial", allPlatforms, "",
			"getrichquick", "passiveincome", "makemoneyonline", "cryptogiveaway", "forex", "binaryoptions"),
		entries(TierRestricted, "adult", []string{"tiktok"}, "",
			"fyp18", "spicy", "nsfw"),
		entries(TierMonitored, "engagement-farming", allPlatforms, "",
			"fyp", "foryou", "foryoupage", "viral", "explorepage", "explore", "trending", "instagood", "photooftheday"),
		entries(TierMonitored, "financial", allPlatforms, "",
			"crypto", "nft", "bitcoin", "giveaway", "airdrop"),
		entries(TierSafe, "general", allPlatforms, "",
			"tech", "travel", "food", "art", "music", "photography", "golang"),
	)
}

func builtinLinks() []Entry {
	return concat(
		entries(TierBanned, "ip-logger", allPlatforms, "IP grabbers",
			"grabify.link", "iplogger.org", "iplogger.com", "2no.co", "yip.su", "blasze.com", "ps3cfw.com"),
		entries(TierBanned, "malware", allPlatforms, "",
			"discord-nitro.gift", "steamcommunnity.com", "free-robux.net"),
		entries(TierRestricted, "throttled", []string{"twitter"}, "competitor links receive reduced reach",
			"substack.com", "threads.net", "bsky.app", "mastodon.social", "patreon.com"),
		entries(TierRestricted, "throttled", []string{"instagram", "tiktok"}, "outbound link penalty",
			"linktr.ee", "onlyfans.com", "fansly.com"),
		entries(TierRestricted, "adult", allPlatforms, "",
			"onlyfans.com", "fansly.com", "chaturbate.com"),
		entries(TierMonitored, "shortener", allPlatforms, "destination hidden",
			"bit.ly", "tinyurl.com", "t.ly", "ow.ly", "is.gd", "buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at", "rb.gy", "tiny.cc", "goo.gl"),
		entries(TierMonitored, "affiliate", allPlatforms, "",
			"amzn.to", "shareasale.com", "clickbank.net"),
		entries(TierSafe, "general", allPlatforms, "",
			"wikipedia.org", "github.com", "youtube.com", "nytimes.com"),
	)
}

func builtinTerms() []Entry {
	return concat(
		entries(TierBanned, "scam", allPlatforms, "",
			"send me your seed phrase", "double your crypto", "guaranteed returns", "dm me for investment", "cash app flip", "crypto recovery expert"),
		entries(TierBanned, "engagement-farming", allPlatforms, "",
			"follow for follow", "like for like", "sub for sub"),
		entries(TierRestricted, "spam", allPlatforms, "",
			"link in bio", "dm for promo", "promo code", "free followers", "buy followers", "check my bio", "click the link"),
		entries(TierRestricted, "financial", allPlatforms, "",
			"get rich quick", "passive income", "to the moon", "100x gem", "pump it"),
		entries(TierRestricted, "financial", []string{"twitter"}, "cashtag pump coordination",
			"$pump", "$moon"),
		entries(TierRestricted, "health-misinformation", allPlatforms, "",
			"miracle cure", "doctors hate", "cures cancer"),
		entries(TierMonitored, "sales", allPlatforms, "",
			"limited time", "act now", "dm me", "giveaway", "discount", "onlyfans"),
		entries(TierMonitored, "financial", []string{"twitter"}, "",
			"$btc", "$eth", "$doge", "$sol"),
	)
}

func builtinMentions() []Entry {
	return concat(
		entries(TierRestricted, "spam-bot", allPlatforms, "known engagement bots",
			"threadreaderapp", "savevideo", "downloadthisvideo", "remindme_ofthis"),
		entries(TierRestricted, "impersonation", allPlatforms, "",
			"elonmusk_giveaway", "binance_support", "metamask_help"),
		entries(TierMonitored, "mass-mention", allPlatforms, "",
			"everyone", "here", "all"),
	)
}

func builtinEmojis() []Entry {
	return concat(
		entries(TierRestricted, "adult", []string{"instagram", "tiktok"}, "suggestive usage is demoted",
			"🍆", "🍑", "💦", "👅"),
		entries(TierRestricted, "drugs", allPlatforms, "",
			"🍁", "❄", "💊", "🔌"),
		entries(TierMonitored, "financial", allPlatforms, "",
			"🚀", "💰", "🤑", "💸", "📈"),
		entries(TierMonitored, "engagement-bait", allPlatforms, "",
			"👇", "🔗", "🔥"),
	)
}
