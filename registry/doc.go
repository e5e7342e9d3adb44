/*
Package registry 提供方法注册表: 描述校验、事务化持久化、加载与能力目录投影。

# 组成

  - Validator — 校验方法描述的结构与命名规则, 以字段限定的错误条目返回问题
  - Store     — 基于 GORM 的 registered_methods 表, 按名称 upsert, 单条事务
  - Loader    — 读取并统一参数表示, 生成规划器使用的 CatalogEntry 列表
  - Manifest  — 声明式 YAML/JSON 方法文件
  - Registrar — 串联校验与 upsert, 输出逐条注册报告

# 批量语义

Store.UpsertMany 按条目独立提交: 一个坏条目不会阻塞其他条目。
Validator.ValidateMany 对重名方法只在第二次及之后的出现处各报一条错误。
*/
package registry
