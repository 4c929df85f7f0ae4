package config

import (
	"os"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Knowledge KnowledgeConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	Temperature    float64
	MaxTokens      int
}

type KnowledgeConfig struct {
	MaxChunkSize    int
	MinChunkSize    int
	TopK            int
	UpsertBatchSize int
	VectorStore     VectorStoreConfig
}

type VectorStoreConfig struct {
	Provider string
	Milvus   MilvusConfig
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	TLS        bool
	VectorSize int
	Distance   string
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")

	// AI配置默认值
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("openai.chat_model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.max_tokens", 1024)

	// 知识库配置默认值
	viper.SetDefault("knowledge.max_chunk_size", 500)
	viper.SetDefault("knowledge.min_chunk_size", 100)
	viper.SetDefault("knowledge.top_k", 3)
	viper.SetDefault("knowledge.upsert_batch_size", 100)
	viper.SetDefault("knowledge.vector_store.provider", "memory")
	viper.SetDefault("knowledge.vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("knowledge.vector_store.milvus.collection", "rag_chunks")
	viper.SetDefault("knowledge.vector_store.milvus.database", "default")
	viper.SetDefault("knowledge.vector_store.milvus.tls", false)
	viper.SetDefault("knowledge.vector_store.milvus.vector_size", 1536)
	viper.SetDefault("knowledge.vector_store.milvus.distance", "cosine")

	// 读取环境变量
	viper.SetEnvPrefix("RAG")
	viper.AutomaticEnv()

	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		viper.Set("server.env", env)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("openai.api_key", apiKey)
	}
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		viper.Set("openai.embedding_model", model)
	}
	if model := os.Getenv("OPENAI_CHAT_MODEL"); model != "" {
		viper.Set("openai.chat_model", model)
	}
	if provider := os.Getenv("VECTOR_STORE_PROVIDER"); provider != "" {
		viper.Set("knowledge.vector_store.provider", provider)
	}
	if address := os.Getenv("MILVUS_ADDRESS"); address != "" {
		viper.Set("knowledge.vector_store.milvus.address", address)
		viper.Set("knowledge.vector_store.provider", "milvus")
	}
	if username := os.Getenv("MILVUS_USERNAME"); username != "" {
		viper.Set("knowledge.vector_store.milvus.username", username)
	}
	if password := os.Getenv("MILVUS_PASSWORD"); password != "" {
		viper.Set("knowledge.vector_store.milvus.password", password)
	}
	if collection := os.Getenv("MILVUS_COLLECTION"); collection != "" {
		viper.Set("knowledge.vector_store.milvus.collection", collection)
	}
	if size := os.Getenv("MILVUS_VECTOR_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			viper.Set("knowledge.vector_store.milvus.vector_size", n)
		}
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         viper.GetString("openai.api_key"),
			EmbeddingModel: viper.GetString("openai.embedding_model"),
			ChatModel:      viper.GetString("openai.chat_model"),
			Temperature:    viper.GetFloat64("openai.temperature"),
			MaxTokens:      viper.GetInt("openai.max_tokens"),
		},
		Knowledge: KnowledgeConfig{
			MaxChunkSize:    viper.GetInt("knowledge.max_chunk_size"),
			MinChunkSize:    viper.GetInt("knowledge.min_chunk_size"),
			TopK:            viper.GetInt("knowledge.top_k"),
			UpsertBatchSize: viper.GetInt("knowledge.upsert_batch_size"),
			VectorStore: VectorStoreConfig{
				Provider: viper.GetString("knowledge.vector_store.provider"),
				Milvus: MilvusConfig{
					Address:    viper.GetString("knowledge.vector_store.milvus.address"),
					Username:   viper.GetString("knowledge.vector_store.milvus.username"),
					Password:   viper.GetString("knowledge.vector_store.milvus.password"),
					Collection: viper.GetString("knowledge.vector_store.milvus.collection"),
					Database:   viper.GetString("knowledge.vector_store.milvus.database"),
					TLS:        viper.GetBool("knowledge.vector_store.milvus.tls"),
					VectorSize: viper.GetInt("knowledge.vector_store.milvus.vector_size"),
					Distance:   viper.GetString("knowledge.vector_store.milvus.distance"),
				},
			},
		},
	}

	return nil
}

// GetAppConfig 获取全局配置实例
func GetAppConfig() *Config {
	return AppConfig
}
