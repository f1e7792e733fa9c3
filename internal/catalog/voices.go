package catalog

// Builtin voice list, ordered for autocomplete display. Ids are the
// provider-side identifiers; names are the friendly labels shown to users.
var builtinVoices = []Voice{
	// Disney characters
	{ID: "en_us_ghostface", Name: "Ghost Face", Provider: ProviderPrimary},
	{ID: "en_us_c3po", Name: "C3PO", Provider: ProviderPrimary},
	{ID: "en_us_stitch", Name: "Stitch", Provider: ProviderPrimary},
	{ID: "en_us_stormtrooper", Name: "Stormtrooper", Provider: ProviderPrimary},
	{ID: "en_us_rocket", Name: "Rocket", Provider: ProviderPrimary},
	{ID: "en_female_madam_leota", Name: "Madame Leota", Provider: ProviderPrimary},
	{ID: "en_male_ghosthost", Name: "Ghost Host", Provider: ProviderPrimary},
	{ID: "en_male_pirate", Name: "Pirate", Provider: ProviderPrimary},
	// Standard voices
	{ID: "en_us_001", Name: "Female English US", Provider: ProviderPrimary},
	{ID: "en_us_002", Name: "Jessie", Provider: ProviderPrimary},
	{ID: "en_us_006", Name: "Joey", Provider: ProviderPrimary},
	{ID: "en_us_007", Name: "Professor", Provider: ProviderPrimary},
	{ID: "en_us_009", Name: "Scientist", Provider: ProviderPrimary},
	{ID: "en_us_010", Name: "Confidence", Provider: ProviderPrimary},
	// Character voices
	{ID: "en_male_jomboy", Name: "Game On", Provider: ProviderPrimary},
	{ID: "en_female_samc", Name: "Empathetic", Provider: ProviderPrimary},
	{ID: "en_male_cody", Name: "Serious", Provider: ProviderPrimary},
	{ID: "en_female_makeup", Name: "Beauty Guru", Provider: ProviderPrimary},
	{ID: "en_female_richgirl", Name: "Bestie", Provider: ProviderPrimary},
	{ID: "en_male_grinch", Name: "Trickster", Provider: ProviderPrimary},
	{ID: "en_male_narration", Name: "Story Teller", Provider: ProviderPrimary},
	{ID: "en_male_deadpool", Name: "Mr. GoodGuy", Provider: ProviderPrimary},
	{ID: "en_male_jarvis", Name: "Alfred", Provider: ProviderPrimary},
	{ID: "en_male_ashmagic", Name: "ashmagic", Provider: ProviderPrimary},
	{ID: "en_male_olantekkers", Name: "olantekkers", Provider: ProviderPrimary},
	{ID: "en_male_ukneighbor", Name: "Lord Cringe", Provider: ProviderPrimary},
	{ID: "en_male_ukbutler", Name: "Mr. Meticulous", Provider: ProviderPrimary},
	{ID: "en_female_shenna", Name: "Debutante", Provider: ProviderPrimary},
	{ID: "en_female_pansino", Name: "Varsity", Provider: ProviderPrimary},
	{ID: "en_male_trevor", Name: "Marty", Provider: ProviderPrimary},
	{ID: "en_female_betty", Name: "Bae", Provider: ProviderPrimary},
	{ID: "en_male_cupid", Name: "Cupid", Provider: ProviderPrimary},
	{ID: "en_female_grandma", Name: "Granny", Provider: ProviderPrimary},
	{ID: "en_male_wizard", Name: "Magician", Provider: ProviderPrimary},
	// Regional voices
	{ID: "en_uk_001", Name: "Narrator", Provider: ProviderPrimary},
	{ID: "en_uk_003", Name: "Male English UK", Provider: ProviderPrimary},
	{ID: "en_au_001", Name: "Metro", Provider: ProviderPrimary},
	{ID: "en_au_002", Name: "Smooth", Provider: ProviderPrimary},
	{ID: "es_mx_002", Name: "Warm", Provider: ProviderPrimary},
	// Translator
	{ID: "google_translate", Name: "Normal voice", Provider: ProviderFallback},
}

// builtinPopular orders the voices most users pick first, used by the
// /voice autocomplete before any typed filter.
var builtinPopular = []string{
	"en_us_ghostface",
	"en_us_002",
	"en_us_006",
	"en_us_007",
	"en_us_009",
	"en_us_010",
	"en_us_rocket",
	"en_us_c3po",
	"en_us_stitch",
	"en_male_jomboy",
	"en_female_samc",
	"en_male_cody",
	"en_female_makeup",
	"en_female_richgirl",
	"en_male_grinch",
	"en_male_narration",
	"en_male_deadpool",
	"en_male_jarvis",
	"en_female_betty",
	"en_male_cupid",
	"en_female_grandma",
	"en_uk_001",
	"en_au_001",
	"google_translate",
}
