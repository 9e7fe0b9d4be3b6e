package config

type Config struct {
	Bot    BotConfig
	Ollama OllamaConfig
	Access AccessConfig
}

type BotConfig struct {
	Provider string
	Token    string
}

type OllamaConfig struct {
	Host  string
	Model string
}

// AccessConfig restricts who may talk to the bot. Empty AllowedIDs
// admits everyone; AdminIDs gates the admin-only surfaces.
type AccessConfig struct {
	AllowedIDs []int64 `yaml:"allowed_ids"`
	AdminIDs   []int64 `yaml:"admin_ids"`
}
