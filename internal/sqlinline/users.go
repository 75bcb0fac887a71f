package sqlinline

const QSelectUserByID = `--sql f79d4b47-3839-4bd6-aca4-c75745c6c01d
select id::text, email, coalesce(name, ''), credit_balance, created_at, updated_at
from users
where id = $1::uuid;
`

const QSelectUserByEmail = `--sql add7bcd6-39a6-44a9-bd07-7a06a73ae44a
select id::text, email, coalesce(name, ''), credit_balance, created_at, updated_at
from users
where lower(email) = lower($1::text);
`

const QUpsertUser = `--sql 19aa4d26-1384-4ce4-b90d-3845132e0881
insert into users (id, email, name, credit_balance, created_at, updated_at)
values (gen_random_uuid(), lower($1::text), nullif($2::text, ''), 0, now(), now())
on conflict (email) do update set
    name = coalesce(nullif(excluded.name, ''), users.name),
    updated_at = now()
returning id::text, email, coalesce(name, ''), credit_balance, created_at, updated_at;
`
